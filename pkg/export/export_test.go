package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"District", "Surveys & Investigations", "Drilling Works"},
		Rows: []Row{
			{"District": "District 1", "Surveys & Investigations": 4.0, "Drilling Works": 2.5},
			{"District": "District 2", "Surveys & Investigations": 0.0},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "District,Surveys & Investigations,Drilling Works\nDistrict 1,4,2.5\nDistrict 2,0,\n", string(out[len(utf8BOM):]))
}

func TestCSVExporterNeutralisesFormulaText(t *testing.T) {
	data := Dataset{
		Headers: []string{"District", "Remarks", "Balance"},
		Rows:    []Row{{"District": "District 3", "Remarks": "=HYPERLINK(\"x\")", "Balance": -12.5}},
	}
	out, err := (&CSVExporter{}).Render(data)
	require.NoError(t, err)
	assert.Equal(t, "District,Remarks,Balance\nDistrict 3,\"'=HYPERLINK(\"\"x\"\")\",-12.5\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Monthly Progress Report - March 2025")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRoundTrip(t *testing.T) {
	raw := Dataset{
		Headers: []string{"District", "Month", "Year", "Surveys & Investigations_surveys_type"},
		Rows:    []Row{{"District": "District 1", "Month": 3, "Year": 2025, "Surveys & Investigations_surveys_type": "VES"}},
	}
	out, err := NewXLSXExporter().Render([]Sheet{{Name: "Summary", Data: sampleDataset()}, {Name: "Raw Data", Data: raw}})
	require.NoError(t, err)

	summary, err := ReadSheet(out, "Summary")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"District", "Surveys & Investigations", "Drilling Works"}, summary[0])
	assert.Equal(t, []string{"District 1", "4", "2.5"}, summary[1])

	rawRows, err := ReadSheet(out, "Raw Data")
	require.NoError(t, err)
	assert.Equal(t, []string{"District 1", "3", "2025", "VES"}, rawRows[1])

	_, err = ReadSheet(out, "Missing")
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "12.75", FormatValue(12.75))
	assert.Equal(t, "7", FormatValue(7))
	assert.Equal(t, "true", FormatValue(true))
}

func TestColumnWidthsFavourLabelColumn(t *testing.T) {
	widths := columnWidths(3, 190)
	assert.InDelta(t, 41.8, widths[0], 0.001)
	assert.InDelta(t, widths[1], widths[2], 0.001)
	assert.InDelta(t, 190, widths[0]+widths[1]+widths[2], 0.001)
	assert.Equal(t, []float64{190}, columnWidths(1, 190))
}
