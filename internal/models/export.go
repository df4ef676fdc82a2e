package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// Extension returns the file extension for the format.
func (f ExportFormat) Extension() string {
	return string(f)
}

// ContentType returns the MIME type served for downloads.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// ExportResult describes a generated report file and its signed link.
type ExportResult struct {
	ID          string       `json:"id"`
	FileName    string       `json:"file_name"`
	Format      ExportFormat `json:"format"`
	Reports     int          `json:"reports"`
	DownloadURL string       `json:"download_url"`
	ExpiresAt   time.Time    `json:"expires_at"`
	CreatedAt   time.Time    `json:"created_at"`
}
