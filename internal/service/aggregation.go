package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
)

// AggregateByDistrict computes sum, mean and max of metric per district over
// approved reports. Reports without the metric are skipped. Results are sorted
// by sum descending and rounded to two decimals.
func AggregateByDistrict(reports []models.MonthlyReport, metric schema.Metric) []dto.DistrictAggregate {
	type acc struct {
		sum   decimal.Decimal
		max   float64
		count int
	}
	byDistrict := map[string]*acc{}
	var order []string
	for _, r := range reports {
		if r.Status != models.ReportStatusApproved {
			continue
		}
		v, ok := schema.NumberValue(r.Data, metric.CategoryID, metric.FieldID)
		if !ok {
			continue
		}
		a, exists := byDistrict[r.District]
		if !exists {
			a = &acc{max: v}
			byDistrict[r.District] = a
			order = append(order, r.District)
		}
		a.sum = a.sum.Add(decimal.NewFromFloat(v))
		if v > a.max {
			a.max = v
		}
		a.count++
	}

	out := make([]dto.DistrictAggregate, 0, len(order))
	for _, district := range order {
		a := byDistrict[district]
		mean := a.sum.Div(decimal.NewFromInt(int64(a.count)))
		out = append(out, dto.DistrictAggregate{
			District: district,
			Sum:      round2(a.sum),
			Mean:     round2(mean),
			Max:      round2(decimal.NewFromFloat(a.max)),
			Count:    a.count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sum != out[j].Sum {
			return out[i].Sum > out[j].Sum
		}
		return out[i].District < out[j].District
	})
	return out
}

// AggregateByPeriod sums metric per "YYYY-MM" over approved reports, oldest first.
func AggregateByPeriod(reports []models.MonthlyReport, metric schema.Metric) []dto.PeriodAggregate {
	sums := map[string]decimal.Decimal{}
	for _, r := range reports {
		if r.Status != models.ReportStatusApproved {
			continue
		}
		period := r.Key().Period()
		v, _ := schema.NumberValue(r.Data, metric.CategoryID, metric.FieldID)
		sums[period] = sums[period].Add(decimal.NewFromFloat(v))
	}
	periods := make([]string, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	out := make([]dto.PeriodAggregate, len(periods))
	for i, p := range periods {
		out[i] = dto.PeriodAggregate{Period: p, Sum: round2(sums[p])}
	}
	return out
}

// CategoryTotals sums each category's representative metric over approved
// reports. A report lacking the field contributes 0; categories without a
// number field are omitted.
func CategoryTotals(reg *schema.Registry, reports []models.MonthlyReport) []dto.CategoryTotal {
	var out []dto.CategoryTotal
	for _, cat := range reg.Categories() {
		field, ok := reg.RepresentativeField(cat.ID)
		if !ok {
			continue
		}
		total := decimal.Zero
		for _, r := range reports {
			if r.Status != models.ReportStatusApproved {
				continue
			}
			v, _ := schema.NumberValue(r.Data, cat.ID, field.ID)
			total = total.Add(decimal.NewFromFloat(v))
		}
		out = append(out, dto.CategoryTotal{
			CategoryID: cat.ID,
			Label:      cat.Label,
			FieldID:    field.ID,
			Unit:       field.Unit,
			Total:      round2(total),
		})
	}
	return out
}

// RepresentativeValues returns each category's representative value from a
// single report, 0 where missing.
func RepresentativeValues(reg *schema.Registry, report models.MonthlyReport) []dto.CategoryTotal {
	return CategoryTotals(reg, []models.MonthlyReport{withStatus(report, models.ReportStatusApproved)})
}

// MetricTotals sums every numeric metric over approved reports in registry order.
func MetricTotals(metrics []schema.Metric, reports []models.MonthlyReport) []dto.MetricTotal {
	out := make([]dto.MetricTotal, 0, len(metrics))
	for _, m := range metrics {
		total := decimal.Zero
		for _, r := range reports {
			if r.Status != models.ReportStatusApproved {
				continue
			}
			v, _ := schema.NumberValue(r.Data, m.CategoryID, m.FieldID)
			total = total.Add(decimal.NewFromFloat(v))
		}
		out = append(out, dto.MetricTotal{Metric: m.Key, Label: m.Label, Unit: m.Unit, Total: round2(total)})
	}
	return out
}

// SubmissionRate is the percentage of registry districts whose report for the
// period is submitted or approved, rounded to one decimal.
func SubmissionRate(reg *schema.Registry, periodReports []models.MonthlyReport) (float64, int) {
	districts := reg.Districts()
	if len(districts) == 0 {
		return 0, 0
	}
	submitted := map[string]struct{}{}
	for _, r := range periodReports {
		if !reg.HasDistrict(r.District) {
			continue
		}
		if r.Status == models.ReportStatusSubmitted || r.Status == models.ReportStatusApproved {
			submitted[r.District] = struct{}{}
		}
	}
	rate := decimal.NewFromInt(int64(len(submitted))).
		Div(decimal.NewFromInt(int64(len(districts)))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		InexactFloat64()
	return rate, len(submitted)
}

// ExpenditureTotal sums every expenditure metric over reports regardless of status.
func ExpenditureTotal(reg *schema.Registry, reports []models.MonthlyReport) float64 {
	total := decimal.Zero
	for _, m := range reg.ExpenditureMetrics() {
		for _, r := range reports {
			v, _ := schema.NumberValue(r.Data, m.CategoryID, m.FieldID)
			total = total.Add(decimal.NewFromFloat(v))
		}
	}
	return round2(total)
}

func withStatus(r models.MonthlyReport, status models.ReportStatus) models.MonthlyReport {
	r.Status = status
	return r
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
