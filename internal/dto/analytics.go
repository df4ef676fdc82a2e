package dto

// DistrictAggregate compares a metric across districts.
type DistrictAggregate struct {
	District string  `json:"district"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Max      float64 `json:"max"`
	Count    int     `json:"count"`
}

// PeriodAggregate is a metric total for one "YYYY-MM" period.
type PeriodAggregate struct {
	Period string  `json:"period"`
	Sum    float64 `json:"sum"`
}

// CategoryTotal is the representative metric total of one category.
type CategoryTotal struct {
	CategoryID string  `json:"categoryId"`
	Label      string  `json:"label"`
	FieldID    string  `json:"fieldId"`
	Unit       string  `json:"unit,omitempty"`
	Total      float64 `json:"total"`
}

// AnalyticsQuery scopes analytics requests. Nil fields are unconstrained.
type AnalyticsQuery struct {
	Year     *int
	Month    *int
	District *string
	Metric   string
}
