package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gwd-progress-api/internal/models"
)

// SaveReportRequest captures PUT /reports/:district/:year/:month payload.
type SaveReportRequest struct {
	Data            models.ReportData   `json:"data"`
	Status          models.ReportStatus `json:"status" validate:"required,oneof=draft submitted"`
	ExpectedVersion *int                `json:"expectedVersion,omitempty" validate:"omitempty,min=0"`
}

// ReviewReportRequest captures POST /reports/:district/:year/:month/review payload.
type ReviewReportRequest struct {
	Decision models.ReviewDecision `json:"decision" validate:"required,oneof=approve reject return"`
	Remarks  string                `json:"remarks"`
}

// ReportHistoryEntry is one audit record of a report transition.
type ReportHistoryEntry struct {
	Action    string          `json:"action"`
	UserID    string          `json:"userId,omitempty"`
	Previous  json.RawMessage `json:"previous,omitempty"`
	Current   json.RawMessage `json:"current,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// RequestMeta carries caller network details for audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}
