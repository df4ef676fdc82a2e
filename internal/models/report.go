package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReportStatus enumerates the monthly report workflow states.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusApproved  ReportStatus = "approved"
	ReportStatusRejected  ReportStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusDraft, ReportStatusSubmitted, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

// ReviewDecision is an admin verdict on a submitted report.
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
	ReviewReturn  ReviewDecision = "return"
)

// ReportData holds category id -> field id -> value, persisted as JSONB.
type ReportData map[string]map[string]interface{}

// Value marshals the payload to JSON for persistence.
func (d ReportData) Value() (driver.Value, error) {
	if d == nil {
		d = ReportData{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal report data: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB column.
func (d *ReportData) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*d = ReportData{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportData", value)
	}
	if len(data) == 0 {
		*d = ReportData{}
		return nil
	}
	out := ReportData{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal report data: %w", err)
	}
	*d = out
	return nil
}

// ReportKey identifies the single report of a district for one month.
type ReportKey struct {
	District string `json:"district"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
}

// String renders the storage id, e.g. "District 3_2025_04".
func (k ReportKey) String() string {
	return fmt.Sprintf("%s_%d_%02d", k.District, k.Year, k.Month)
}

// Period renders "YYYY-MM".
func (k ReportKey) Period() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// ParseReportID splits a storage id back into its key. District names may contain underscores.
func ParseReportID(id string) (ReportKey, error) {
	monthIdx := strings.LastIndex(id, "_")
	if monthIdx <= 0 {
		return ReportKey{}, fmt.Errorf("malformed report id %q", id)
	}
	yearIdx := strings.LastIndex(id[:monthIdx], "_")
	if yearIdx <= 0 {
		return ReportKey{}, fmt.Errorf("malformed report id %q", id)
	}
	year, err := strconv.Atoi(id[yearIdx+1 : monthIdx])
	if err != nil {
		return ReportKey{}, fmt.Errorf("malformed report year in %q", id)
	}
	month, err := strconv.Atoi(id[monthIdx+1:])
	if err != nil || len(id[monthIdx+1:]) != 2 {
		return ReportKey{}, fmt.Errorf("malformed report month in %q", id)
	}
	return ReportKey{District: id[:yearIdx], Year: year, Month: month}, nil
}

// MonthlyReport is the per-district, per-month progress document.
type MonthlyReport struct {
	ID            string       `db:"id" json:"id"`
	District      string       `db:"district" json:"district"`
	Year          int          `db:"year" json:"year"`
	Month         int          `db:"month" json:"month"`
	Data          ReportData   `db:"data" json:"data"`
	Status        ReportStatus `db:"status" json:"status"`
	SubmittedBy   string       `db:"submitted_by" json:"submitted_by"`
	SubmittedAt   *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	LastModified  time.Time    `db:"last_modified" json:"last_modified"`
	ReviewedBy    *string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewRemarks *string      `db:"review_remarks" json:"review_remarks,omitempty"`
	Version       int          `db:"version" json:"version"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// Key returns the report's composite key.
func (r *MonthlyReport) Key() ReportKey {
	return ReportKey{District: r.District, Year: r.Year, Month: r.Month}
}

// ReportFilter narrows report listings. Nil fields are unconstrained.
type ReportFilter struct {
	District *string
	Year     *int
	Month    *int
	Status   []ReportStatus
}
