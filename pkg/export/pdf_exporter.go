package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	// Summary tables wider than this many columns go landscape.
	landscapeAfter = 6
	labelShare     = 0.22
	rowHeight      = 7.0
)

// PDFExporter prints the period summary as an A4 table: district labels in a
// wide first column, header row repeated on every page, page numbers in the footer.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("pdf export needs a header row")
	}

	orientation, usable := "P", 190.0
	if len(data.Headers) > landscapeAfter {
		orientation, usable = "L", 277.0
	}
	widths := columnWidths(len(data.Headers), usable)

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		if title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
			pdf.Ln(3)
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(222, 235, 247)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], rowHeight+1, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	for n, row := range data.Rows {
		fill := n%2 == 1
		pdf.SetFillColor(245, 248, 252)
		for i, v := range data.Record(row) {
			align := "L"
			if isNumeric(v) {
				align = "R"
			}
			pdf.CellFormat(widths[i], rowHeight, tr(FormatValue(v)), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths gives the label column a fixed share and splits the rest evenly.
func columnWidths(n int, usable float64) []float64 {
	widths := make([]float64, n)
	if n == 1 {
		widths[0] = usable
		return widths
	}
	widths[0] = usable * labelShare
	rest := (usable - widths[0]) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return false
}
