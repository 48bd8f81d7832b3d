package table

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/coolbeans/shamroq/pkg/types"
)

// textNumberFormat is the built-in "@" number format.
const textNumberFormat = 49

// WriteXLSX writes table to path as a workbook with a single sheet. The
// first column is formatted as text so section numbers such as 1.10 keep
// their trailing zeros.
func WriteXLSX(path, sheet string, table types.Table) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	defaultSheet := workbook.GetSheetName(0)
	if err := workbook.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	textStyle, err := workbook.NewStyle(&excelize.Style{NumFmt: textNumberFormat})
	if err != nil {
		return fmt.Errorf("failed to create text style: %w", err)
	}
	if err := workbook.SetColStyle(sheet, "A", textStyle); err != nil {
		return fmt.Errorf("failed to style first column: %w", err)
	}

	if err := setRow(workbook, sheet, 1, table.Header()); err != nil {
		return err
	}
	for index := 0; index < table.Len(); index++ {
		if err := setRow(workbook, sheet, index+2, table.Row(index)); err != nil {
			return err
		}
	}

	return workbook.SaveAs(path)
}

func setRow(workbook *excelize.File, sheet string, rowNumber int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for index, value := range values {
		row[index] = value
	}
	if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNumber, err)
	}
	return nil
}

func readXLSX(path string) ([][]string, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
