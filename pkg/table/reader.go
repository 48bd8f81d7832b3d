package table

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coolbeans/shamroq/pkg/types"
)

// ReadRegulations reads a stage-one table from a .csv or .xlsx file. The
// SECTNO, SUBJECT and TEXT columns are required and may appear in any
// order; other columns are ignored. Every value is read as a string.
func ReadRegulations(path string) (types.RegulationTable, error) {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSV(path)
	case FormatXLSX:
		rows, err = readXLSX(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrMissingColumn, path)
	}

	columns := make(map[string]int, len(rows[0]))
	for index, name := range rows[0] {
		columns[strings.TrimSpace(name)] = index
	}

	required := []string{types.ColumnSectionNumber, types.ColumnSubject, types.ColumnText}
	positions := make([]int, len(required))
	for index, name := range required {
		position, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, name, path)
		}
		positions[index] = position
	}

	cell := func(row []string, position int) string {
		if position < len(row) {
			return row[position]
		}
		return ""
	}

	table := make(types.RegulationTable, 0, len(rows)-1)
	for _, row := range rows[1:] {
		table = append(table, types.RegulationRecord{
			SectionNumber: cell(row, positions[0]),
			Subject:       cell(row, positions[1]),
			Text:          cell(row, positions[2]),
		})
	}
	return table, nil
}
