package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders one or more datasets into a workbook, one sheet each.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes each sheet in order; the first sheet replaces excelize's default "Sheet1".
func (e *XLSXExporter) Render(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6ECF5"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range sheets {
		if len(sheet.Data.Headers) == 0 {
			return nil, fmt.Errorf("sheet %q requires at least one header", sheet.Name)
		}
		if i == 0 {
			if err := file.SetSheetName(file.GetSheetName(0), sheet.Name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := file.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet.Name, err)
		}

		if err := writeRow(file, sheet.Name, 1, toInterfaces(sheet.Data.Headers)); err != nil {
			return nil, err
		}
		lastHeader, err := excelize.CoordinatesToCellName(len(sheet.Data.Headers), 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellStyle(sheet.Name, "A1", lastHeader, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %q: %w", sheet.Name, err)
		}
		for r, row := range sheet.Data.Rows {
			if err := writeRow(file, sheet.Name, r+2, sheet.Data.Record(row)); err != nil {
				return nil, err
			}
		}
	}
	file.SetActiveSheet(0)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadSheet returns every row of the named sheet as text, header row first.
func ReadSheet(data []byte, sheet string) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	if idx, err := file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func writeRow(file *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
