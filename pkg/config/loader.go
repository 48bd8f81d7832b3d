package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes environment overrides for settings.
	EnvPrefix = "SHAMROQ_"
)

// Load reads the configuration file at path, then applies SHAMROQ_*
// environment overrides to the settings section.
//
// A missing, oversized or malformed file is an error: the run cannot pick
// a dataset without it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large: %d bytes (max %d)", path, info.Size(), maxConfigFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(content)
}

// Parse builds a Config from raw JSON or YAML bytes plus the environment.
func Parse(content []byte) (*Config, error) {
	k := koanf.New(".")

	// JSON is a subset of YAML, so one parser serves both file formats.
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// SHAMROQ_LOG_FILE -> settings.log_file
	if err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if name == "" {
			return ""
		}
		return SettingsKey + "." + name
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config := &Config{Datasets: make(map[string]Dataset)}

	if k.Exists(SettingsKey) {
		if err := k.Unmarshal(SettingsKey, &config.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	for identifier, value := range k.Raw() {
		if identifier == SettingsKey {
			continue
		}
		if _, isMap := value.(map[string]interface{}); !isMap {
			continue
		}

		var dataset Dataset
		if err := k.Unmarshal(identifier, &dataset); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dataset %q: %w", identifier, err)
		}
		config.Datasets[identifier] = dataset
	}

	applyDefaults(&config.Settings)
	if err := validateSettings(config.Settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return config, nil
}
