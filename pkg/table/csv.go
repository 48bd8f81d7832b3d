package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/coolbeans/shamroq/pkg/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes table to path as UTF-8 with a byte order mark, header
// row first.
func WriteCSV(path string, table types.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := encodeCSV(file, table); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func encodeCSV(writer io.Writer, table types.Table) error {
	if _, err := writer.Write(utf8BOM); err != nil {
		return err
	}

	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(table.Header()); err != nil {
		return err
	}
	for index := 0; index < table.Len(); index++ {
		if err := csvWriter.Write(table.Row(index)); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	if prefix, err := reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := reader.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}
