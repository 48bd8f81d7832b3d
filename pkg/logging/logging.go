// Package logging builds the zap loggers used by both pipeline stages.
//
// Errors are written to a log file so a batch run leaves an audit trail;
// the console is reserved for the final output path and summary.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFile is the log file used when none is configured.
const DefaultFile = "./logs/app.shamroq.log"

// Config controls where and how logs are written.
type Config struct {
	// File is the log file path. Parent directories are created.
	File string

	// Level is a zap level name ("debug", "info", "warn", "error").
	Level string

	// Format is "console" (default) or "json".
	Format string

	// Stderr mirrors log output to stderr when true.
	Stderr bool
}

// DefaultConfig returns the configuration used by the CLI when the
// settings leave logging unspecified.
func DefaultConfig() Config {
	return Config{
		File:   DefaultFile,
		Level:  "info",
		Format: "console",
	}
}

// New creates a logger from config. The returned close function syncs and
// closes the log file and must be called before the process exits.
func New(config Config) (*zap.Logger, func() error, error) {
	if config.File == "" {
		config.File = DefaultFile
	}

	level := zapcore.InfoLevel
	if config.Level != "" {
		parsedLevel, err := zapcore.ParseLevel(config.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
		level = parsedLevel
	}

	if config.Format != "" && config.Format != "console" && config.Format != "json" {
		return nil, nil, fmt.Errorf("log format must be 'console' or 'json', got %q", config.Format)
	}

	if err := os.MkdirAll(filepath.Dir(config.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(config.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", config.File, err)
	}

	encoder := newEncoder(config.Format)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(logFile), level),
	}
	if config.Stderr {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	closeFunc := func() error {
		_ = logger.Sync()
		return logFile.Close()
	}

	return logger, closeFunc, nil
}

// newEncoder mirrors the "time - LEVEL - message" layout of the legacy
// log files; json is available for machine consumption.
func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.ConsoleSeparator = " - "
	return zapcore.NewConsoleEncoder(encoderConfig)
}
