package export

import (
	"strconv"
)

// Row maps a header to its cell value.
type Row map[string]interface{}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []Row
}

// Sheet is a named dataset inside a workbook.
type Sheet struct {
	Name string
	Data Dataset
}

// Record returns row values ordered by the dataset headers.
func (d Dataset) Record(row Row) []interface{} {
	record := make([]interface{}, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}

// FormatValue renders a cell for text based formats.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case interface{ String() string }:
		return val.String()
	default:
		return ""
	}
}
