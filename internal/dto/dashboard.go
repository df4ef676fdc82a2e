package dto

import "time"

// NotSubmitted labels districts without a report for the period.
const NotSubmitted = "Not Submitted"

// DashboardResponse is the state overview for one reporting period.
type DashboardResponse struct {
	Year               int              `json:"year"`
	Month              int              `json:"month"`
	TotalDistricts     int              `json:"totalDistricts"`
	SubmittedDistricts int              `json:"submittedDistricts"`
	SubmissionRate     float64          `json:"submissionRate"`
	ApprovedCount      int              `json:"approvedCount"`
	PendingCount       int              `json:"pendingCount"`
	DraftCount         int              `json:"draftCount"`
	RejectedCount      int              `json:"rejectedCount"`
	TotalExpenditure   float64          `json:"totalExpenditure"`
	YearToDate         YearToDate       `json:"yearToDate"`
	Districts          []DistrictStatus `json:"districts"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}

// YearToDate sums approved reports from January up to the dashboard month.
type YearToDate struct {
	ApprovedReports  int     `json:"approvedReports"`
	TotalExpenditure float64 `json:"totalExpenditure"`
}

// DistrictStatus is one row of the district status board.
type DistrictStatus struct {
	District     string     `json:"district"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// DistrictProgressResponse summarises approved work of a single district.
type DistrictProgressResponse struct {
	District        string          `json:"district"`
	Year            *int            `json:"year,omitempty"`
	ApprovedReports int             `json:"approvedReports"`
	Totals          []MetricTotal   `json:"totals"`
	Latest          *LatestProgress `json:"latest,omitempty"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

// MetricTotal is the sum of one numeric metric.
type MetricTotal struct {
	Metric string  `json:"metric"`
	Label  string  `json:"label"`
	Unit   string  `json:"unit,omitempty"`
	Total  float64 `json:"total"`
}

// LatestProgress holds the representative values of the newest approved report.
type LatestProgress struct {
	Period     string          `json:"period"`
	Categories []CategoryTotal `json:"categories"`
}
