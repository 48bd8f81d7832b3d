// Package config loads dataset definitions and application settings.
//
// The configuration file is a JSON (or YAML) document whose top-level keys
// are dataset identifiers such as "CFR_48_2021":
//
//	{
//	  "CFR_48_2021": {
//	    "HOME_BASE": "./data/",
//	    "VOLUMES": ["title-48/CFR-2021-title48-vol1.xml"],
//	    "REG_NAME": "eCFR_48_2021"
//	  },
//	  "settings": {"log_file": "./logs/app.shamroq.log"}
//	}
//
// The reserved key "settings" holds application settings. Settings may be
// overridden with SHAMROQ_<NAME> environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SettingsKey is the reserved top-level key for application settings.
const SettingsKey = "settings"

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "./config/config.json"

var (
	// ErrDatasetNotFound is returned when a dataset identifier has no entry.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrInvalidDataset is returned when a dataset entry is incomplete.
	ErrInvalidDataset = errors.New("invalid dataset")
)

// Dataset describes one regulatory corpus and where its files live.
type Dataset struct {
	// HomeBase is the directory volumes are resolved against and outputs
	// are written under.
	HomeBase string `koanf:"HOME_BASE" json:"HOME_BASE"`

	// Volumes lists XML volume paths relative to HomeBase.
	Volumes []string `koanf:"VOLUMES" json:"VOLUMES"`

	// RegName is the output file name prefix.
	RegName string `koanf:"REG_NAME" json:"REG_NAME"`

	// ClassifyInput is the stage-1 table consumed by classify, relative to
	// HomeBase. Optional.
	ClassifyInput string `koanf:"CLASSIFY_INPUT" json:"CLASSIFY_INPUT,omitempty"`

	// SourceURL is the base URL volumes are downloaded from by fetch.
	SourceURL string `koanf:"SOURCE_URL" json:"SOURCE_URL,omitempty"`
}

// VolumePaths resolves every volume against HomeBase, in configured order.
func (dataset Dataset) VolumePaths() []string {
	paths := make([]string, 0, len(dataset.Volumes))
	for _, volume := range dataset.Volumes {
		paths = append(paths, dataset.resolve(volume))
	}
	return paths
}

// ClassifyInputPath returns the stage-1 table to classify. It prefers
// CLASSIFY_INPUT and falls back to the first volume when that volume is a
// spreadsheet or CSV file, which is how legacy analyze configs point at
// the extracted table.
func (dataset Dataset) ClassifyInputPath() (string, error) {
	if dataset.ClassifyInput != "" {
		return dataset.resolve(dataset.ClassifyInput), nil
	}
	if len(dataset.Volumes) > 0 {
		extension := strings.ToLower(filepath.Ext(dataset.Volumes[0]))
		if extension == ".xlsx" || extension == ".csv" {
			return dataset.resolve(dataset.Volumes[0]), nil
		}
	}
	return "", fmt.Errorf("%w: no CLASSIFY_INPUT and first volume is not a table", ErrInvalidDataset)
}

func (dataset Dataset) resolve(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return relativePath
	}
	return filepath.Join(dataset.HomeBase, relativePath)
}

// Validate checks the fields every stage needs.
func (dataset Dataset) Validate() error {
	if dataset.HomeBase == "" {
		return fmt.Errorf("%w: HOME_BASE is required", ErrInvalidDataset)
	}
	if dataset.RegName == "" {
		return fmt.Errorf("%w: REG_NAME is required", ErrInvalidDataset)
	}
	return nil
}

// Settings are application-wide options.
type Settings struct {
	Dataset           string        `koanf:"dataset"`
	LogFile           string        `koanf:"log_file"`
	LogLevel          string        `koanf:"log_level"`
	LogFormat         string        `koanf:"log_format"`
	RulesFile         string        `koanf:"rules_file"`
	PhraseMatcherAttr string        `koanf:"phrase_matcher_attr"`
	SectionSuffix     *string       `koanf:"sectno_suffix"`
	ExtractFormat     string        `koanf:"extract_format"`
	ClassifyFormat    string        `koanf:"classify_format"`
	Workers           int           `koanf:"workers"`
	DownloadTimeout   time.Duration `koanf:"download_timeout"`
	DownloadRateLimit time.Duration `koanf:"download_rate_limit"`
	DownloadRetries   int           `koanf:"download_retries"`
}

// DefaultSectionSuffix is appended to section numbers in the extracted
// table so spreadsheet tools keep them as text.
const DefaultSectionSuffix = "\u00a0"

// SectionNumberSuffix returns the configured suffix, defaulting to a
// no-break space. An explicit empty string disables it.
func (settings Settings) SectionNumberSuffix() string {
	if settings.SectionSuffix == nil {
		return DefaultSectionSuffix
	}
	return *settings.SectionSuffix
}

// Config is the loaded configuration file.
type Config struct {
	Settings Settings
	Datasets map[string]Dataset
}

// Dataset looks up a dataset by identifier and validates it.
func (config *Config) Dataset(identifier string) (Dataset, error) {
	if identifier == "" {
		return Dataset{}, fmt.Errorf("%w: no dataset selected (use --dataset or settings.dataset)", ErrDatasetNotFound)
	}

	dataset, ok := config.Datasets[identifier]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q (available: %s)", ErrDatasetNotFound, identifier,
			strings.Join(config.DatasetNames(), ", "))
	}

	if err := dataset.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("dataset %q: %w", identifier, err)
	}

	return dataset, nil
}

// DatasetNames returns the configured dataset identifiers, sorted.
func (config *Config) DatasetNames() []string {
	names := make([]string, 0, len(config.Datasets))
	for name := range config.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func applyDefaults(settings *Settings) {
	if settings.LogFile == "" {
		settings.LogFile = "./logs/app.shamroq.log"
	}
	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}
	if settings.LogFormat == "" {
		settings.LogFormat = "console"
	}
	if settings.RulesFile == "" {
		settings.RulesFile = "./config/shamroq-patterns-rules.jsonl"
	}
	if settings.PhraseMatcherAttr == "" {
		settings.PhraseMatcherAttr = "ORTH"
	}
	if settings.ExtractFormat == "" {
		settings.ExtractFormat = "xlsx"
	}
	if settings.ClassifyFormat == "" {
		settings.ClassifyFormat = "xlsx"
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if settings.DownloadTimeout <= 0 {
		settings.DownloadTimeout = 5 * time.Minute
	}
	if settings.DownloadRateLimit <= 0 {
		settings.DownloadRateLimit = 3 * time.Second
	}
	if settings.DownloadRetries <= 0 {
		settings.DownloadRetries = 3
	}
}

func validateSettings(settings Settings) error {
	switch strings.ToUpper(settings.PhraseMatcherAttr) {
	case "ORTH", "TEXT", "LOWER", "NORM", "LEMMA":
	default:
		return fmt.Errorf("phrase_matcher_attr must be one of ORTH, TEXT, LOWER, NORM, LEMMA, got %q", settings.PhraseMatcherAttr)
	}
	for name, format := range map[string]string{
		"extract_format":  settings.ExtractFormat,
		"classify_format": settings.ClassifyFormat,
	} {
		if format != "xlsx" && format != "csv" {
			return fmt.Errorf("%s must be 'xlsx' or 'csv', got %q", name, format)
		}
	}
	return nil
}
