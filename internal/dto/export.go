package dto

import "github.com/noah-isme/gwd-progress-api/internal/models"

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Year     int                 `json:"year" validate:"required,min=2000,max=2100"`
	Month    int                 `json:"month" validate:"required,min=1,max=12"`
	District string              `json:"district,omitempty"`
	Format   models.ExportFormat `json:"format" validate:"omitempty,oneof=xlsx csv pdf"`
}

// SummaryRow is one district row read back from an exported Summary sheet.
type SummaryRow struct {
	District string             `json:"district"`
	Values   map[string]float64 `json:"values"`
}
