package table

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/shamroq/pkg/config"
	"github.com/coolbeans/shamroq/pkg/types"
)

// Timestamp layouts embedded in output file names.
const (
	extractTimestamp  = "2006-01-02_15-04-05"
	classifyTimestamp = "2006-01-02-15-04-05"
)

// ExtractPath names the stage-one output:
// <HOME_BASE>/output/<REG_NAME><timestamp>.<ext>
func ExtractPath(dataset config.Dataset, format Format, now time.Time) string {
	name := dataset.RegName + now.Format(extractTimestamp) + format.Extension()
	return filepath.Join(dataset.HomeBase, "output", name)
}

// ClassifyPath names the stage-two output. Workbooks are written to
// <HOME_BASE>/results/<REG_NAME>_dtg-<timestamp>.xlsx and CSV files to
// <HOME_BASE>/results/CLASSIFIED_<REG_NAME><timestamp>.csv.
func ClassifyPath(dataset config.Dataset, format Format, now time.Time) string {
	var name string
	if format == FormatCSV {
		name = "CLASSIFIED_" + dataset.RegName + now.Format(extractTimestamp) + format.Extension()
	} else {
		name = dataset.RegName + "_dtg-" + now.Format(classifyTimestamp) + format.Extension()
	}
	return filepath.Join(dataset.HomeBase, "results", name)
}

// Writer persists tables under deterministic names.
type Writer struct {
	logger *zap.Logger

	// Now supplies the timestamp embedded in file names.
	Now func() time.Time
}

// NewWriter creates a Writer that stamps names with the local clock.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger, Now: time.Now}
}

// WriteExtract writes a regulation table and returns its path.
func (writer *Writer) WriteExtract(dataset config.Dataset, table types.RegulationTable, format Format) (string, error) {
	return writer.Write(ExtractPath(dataset, format, writer.Now()), ExtractSheet, table, format)
}

// WriteClassified writes a match table and returns its path.
func (writer *Writer) WriteClassified(dataset config.Dataset, table types.MatchTable, format Format) (string, error) {
	return writer.Write(ClassifyPath(dataset, format, writer.Now()), ClassifySheet, table, format)
}

// Write persists table at path, creating parent directories. Failures are
// logged and returned wrapped in ErrWrite with an empty path.
func (writer *Writer) Write(path, sheet string, table types.Table, format Format) (string, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err == nil {
		switch format {
		case FormatCSV:
			err = WriteCSV(path, table)
		case FormatXLSX:
			err = WriteXLSX(path, sheet, table)
		default:
			err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
		}
	}

	if err != nil {
		writer.logger.Error("Error writing output file",
			zap.String("path", path),
			zap.String("format", string(format)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}

	writer.logger.Info("Wrote output file",
		zap.String("path", path),
		zap.Int("rows", table.Len()))
	return path, nil
}
