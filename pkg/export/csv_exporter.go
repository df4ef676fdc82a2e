package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// utf8BOM lets spreadsheet tools detect the encoding of district names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter writes the raw report rows of a period as a flat CSV file.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds an exporter that prefixes output with a UTF-8 BOM.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{bom: true}
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv export needs a header row")
	}

	var buf bytes.Buffer
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	_ = w.Write(data.Headers)

	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, v := range data.Record(row) {
			record[i] = neutraliseFormula(v, FormatValue(v))
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", n+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

// neutraliseFormula quotes free-text cells that a spreadsheet would evaluate.
// Numeric cells are left alone so negative amounts stay numbers.
func neutraliseFormula(raw interface{}, cell string) string {
	if _, isText := raw.(string); !isText || cell == "" {
		return cell
	}
	if strings.ContainsRune("=+-@", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
