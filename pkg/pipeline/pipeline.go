// Package pipeline wires configuration, extraction, classification and
// output writing into the runs exposed by the command line.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/cfr"
	"github.com/coolbeans/shamroq/pkg/classify"
	"github.com/coolbeans/shamroq/pkg/config"
	"github.com/coolbeans/shamroq/pkg/nlp"
	"github.com/coolbeans/shamroq/pkg/pattern"
	"github.com/coolbeans/shamroq/pkg/table"
	"github.com/coolbeans/shamroq/pkg/types"
)

// Runner executes pipeline stages for the datasets of one configuration.
type Runner struct {
	config *config.Config
	logger *zap.Logger
	writer *table.Writer
}

// NewRunner creates a Runner. A nil writer uses table.NewWriter.
func NewRunner(cfg *config.Config, logger *zap.Logger, writer *table.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writer == nil {
		writer = table.NewWriter(logger)
	}
	return &Runner{config: cfg, logger: logger, writer: writer}
}

// ExtractResult describes a finished extraction.
type ExtractResult struct {
	RunID      string
	Dataset    string
	OutputPath string
	Records    int
	Volumes    []cfr.VolumeResult
	Duration   time.Duration
}

// ClassifyOptions override settings for one classification run.
type ClassifyOptions struct {
	// InputPath replaces the dataset's CLASSIFY_INPUT.
	InputPath string

	// Format replaces settings.classify_format.
	Format table.Format
}

// ClassifyResult describes a finished classification.
type ClassifyResult struct {
	RunID      string
	Dataset    string
	InputPath  string
	OutputPath string
	Matches    int
	Report     *classify.Report
	Duration   time.Duration
}

// Extract parses the dataset's volumes and writes the regulation table.
// format overrides settings.extract_format when set.
func (runner *Runner) Extract(ctx context.Context, datasetName string, format table.Format) (*ExtractResult, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := runner.logger.With(zap.String("run_id", runID), zap.String("dataset", datasetName))

	dataset, err := runner.config.Dataset(datasetName)
	if err != nil {
		return nil, err
	}
	if len(dataset.Volumes) == 0 {
		return nil, fmt.Errorf("%w: dataset %q has no VOLUMES", config.ErrInvalidDataset, datasetName)
	}

	format, err = runner.resolveFormat(format, runner.config.Settings.ExtractFormat)
	if err != nil {
		return nil, err
	}

	regulations, volumes, err := runner.extractTable(ctx, logger, dataset)
	if err != nil {
		return nil, err
	}

	outputPath, err := runner.writer.WriteExtract(dataset, regulations, format)
	if err != nil {
		return nil, err
	}

	duration := time.Since(startTime)
	logger.Info("Extraction finished",
		zap.String("output", outputPath),
		zap.Int("records", len(regulations)),
		zap.Duration("duration", duration))

	return &ExtractResult{
		RunID:      runID,
		Dataset:    datasetName,
		OutputPath: outputPath,
		Records:    len(regulations),
		Volumes:    volumes,
		Duration:   duration,
	}, nil
}

// Classify reads a stage-one table and writes the deontic matches.
func (runner *Runner) Classify(ctx context.Context, datasetName string, options ClassifyOptions) (*ClassifyResult, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := runner.logger.With(zap.String("run_id", runID), zap.String("dataset", datasetName))

	dataset, err := runner.config.Dataset(datasetName)
	if err != nil {
		return nil, err
	}

	format, err := runner.resolveFormat(options.Format, runner.config.Settings.ClassifyFormat)
	if err != nil {
		return nil, err
	}

	inputPath := options.InputPath
	if inputPath == "" {
		if inputPath, err = dataset.ClassifyInputPath(); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", datasetName, err)
		}
	}

	regulations, err := table.ReadRegulations(inputPath)
	if err != nil {
		logger.Error("Error reading classification input", zap.String("path", inputPath), zap.Error(err))
		return nil, fmt.Errorf("failed to read classification input: %w", err)
	}

	result, err := runner.classifyTable(ctx, logger, runID, dataset, regulations, format)
	if err != nil {
		return nil, err
	}
	result.Dataset = datasetName
	result.InputPath = inputPath
	result.Duration = time.Since(startTime)

	logger.Info("Classification run finished",
		zap.String("input", inputPath),
		zap.String("output", result.OutputPath),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Run extracts the dataset's volumes and classifies the resulting table in
// one pass, writing both outputs.
func (runner *Runner) Run(ctx context.Context, datasetName string) (*ExtractResult, *ClassifyResult, error) {
	extractResult, err := runner.Extract(ctx, datasetName, "")
	if err != nil {
		return nil, nil, err
	}
	classifyResult, err := runner.Classify(ctx, datasetName, ClassifyOptions{InputPath: extractResult.OutputPath})
	if err != nil {
		return extractResult, nil, err
	}
	return extractResult, classifyResult, nil
}

func (runner *Runner) extractTable(ctx context.Context, logger *zap.Logger, dataset config.Dataset) (types.RegulationTable, []cfr.VolumeResult, error) {
	extractor := cfr.NewExtractor(logger, runner.config.Settings.Workers)
	regulations, volumes, err := extractor.ExtractVolumes(ctx, dataset.VolumePaths())
	if err != nil {
		return nil, volumes, fmt.Errorf("extraction interrupted: %w", err)
	}
	return regulations.WithSectionSuffix(runner.config.Settings.SectionNumberSuffix()), volumes, nil
}

func (runner *Runner) classifyTable(ctx context.Context, logger *zap.Logger, runID string, dataset config.Dataset, regulations types.RegulationTable, format table.Format) (*ClassifyResult, error) {
	dictionary, err := LoadRules(runner.config.Settings.RulesFile)
	if err != nil {
		return nil, err
	}

	engine, err := nlp.NewEngine(dictionary, nlp.Options{
		PhraseMatcherAttr: runner.config.Settings.PhraseMatcherAttr,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build nlp engine: %w", err)
	}
	defer engine.Close()

	processor := classify.NewProcessor(engine, logger, runID)
	matches, report, err := processor.Process(ctx, regulations)
	if err != nil {
		return nil, err
	}

	outputPath, err := runner.writer.WriteClassified(dataset, matches, format)
	if err != nil {
		return nil, err
	}

	return &ClassifyResult{
		RunID:      runID,
		OutputPath: outputPath,
		Matches:    len(matches),
		Report:     report,
	}, nil
}

func (runner *Runner) resolveFormat(override table.Format, configured string) (table.Format, error) {
	if override != "" {
		return table.ParseFormat(string(override))
	}
	return table.ParseFormat(configured)
}

// LoadRules loads the rule dictionary at path. The special path
// pattern.DefaultRulesSource selects the built-in dictionary.
func LoadRules(path string) (*pattern.Dictionary, error) {
	if path == pattern.DefaultRulesSource {
		return pattern.DefaultRules()
	}
	dictionary, err := pattern.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return dictionary, nil
}
