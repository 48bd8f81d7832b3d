// Package table persists regulation and match tables as CSV or xlsx and
// reads regulation tables back for classification.
package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWrite wraps every failure to persist a table.
	ErrWrite = errors.New("failed to write table")

	// ErrMissingColumn is returned when an input table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrUnsupportedFormat is returned for file formats other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Sheet names used in xlsx output.
const (
	ExtractSheet  = "SHAMROQ"
	ClassifySheet = "SHAMROQ_RESULTS"
)

// ParseFormat accepts csv or xlsx in any case, with or without a leading dot.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(name, "."))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Extension returns the file extension including the dot.
func (format Format) Extension() string {
	return "." + string(format)
}
