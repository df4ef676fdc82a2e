package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

// AnalyticsService answers metric comparisons over approved reports.
type AnalyticsService struct {
	reports  reportLister
	registry *schema.Registry
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(reports reportLister, registry *schema.Registry, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if registry == nil {
		registry = schema.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{reports: reports, registry: registry, metrics: metrics, logger: logger}
}

// Metrics lists the numeric metrics available for comparison.
func (s *AnalyticsService) Metrics() []schema.Metric {
	return s.registry.NumericMetrics()
}

// Districts compares one metric across districts. Administrators only.
func (s *AnalyticsService) Districts(ctx context.Context, q dto.AnalyticsQuery, actor models.Actor) ([]dto.DistrictAggregate, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "district comparison is restricted to administrators")
	}
	metric, err := s.resolveMetric(q.Metric)
	if err != nil {
		return nil, err
	}
	reports, err := s.load(ctx, "analytics_districts", q, actor)
	if err != nil {
		return nil, err
	}
	return AggregateByDistrict(reports, metric), nil
}

// Trends returns one metric per period, oldest first.
func (s *AnalyticsService) Trends(ctx context.Context, q dto.AnalyticsQuery, actor models.Actor) ([]dto.PeriodAggregate, error) {
	metric, err := s.resolveMetric(q.Metric)
	if err != nil {
		return nil, err
	}
	reports, err := s.load(ctx, "analytics_trends", q, actor)
	if err != nil {
		return nil, err
	}
	return AggregateByPeriod(reports, metric), nil
}

// Categories totals each category's representative metric.
func (s *AnalyticsService) Categories(ctx context.Context, q dto.AnalyticsQuery, actor models.Actor) ([]dto.CategoryTotal, error) {
	reports, err := s.load(ctx, "analytics_categories", q, actor)
	if err != nil {
		return nil, err
	}
	return CategoryTotals(s.registry, reports), nil
}

func (s *AnalyticsService) resolveMetric(key string) (schema.Metric, error) {
	if key == "" {
		metrics := s.registry.NumericMetrics()
		if len(metrics) == 0 {
			return schema.Metric{}, appErrors.Validationf("schema defines no numeric metrics")
		}
		return metrics[0], nil
	}
	metric, ok := s.registry.Metric(key)
	if !ok {
		return schema.Metric{}, appErrors.Validationf("unknown metric %q", key)
	}
	return metric, nil
}

func (s *AnalyticsService) load(ctx context.Context, label string, q dto.AnalyticsQuery, actor models.Actor) ([]models.MonthlyReport, error) {
	if q.Month != nil && (*q.Month < 1 || *q.Month > 12) {
		return nil, appErrors.Validationf("month must be between 1 and 12")
	}
	district := q.District
	if !actor.IsAdmin() {
		if district != nil && *district != actor.District {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "reports of other districts are not visible")
		}
		own := actor.District
		district = &own
	} else if district != nil && !s.registry.HasDistrict(*district) {
		return nil, appErrors.Validationf("unknown district %q", *district)
	}

	start := time.Now()
	reports, err := s.reports.List(ctx, models.ReportFilter{
		District: district,
		Year:     q.Year,
		Month:    q.Month,
		Status:   []models.ReportStatus{models.ReportStatusApproved},
	})
	if err != nil {
		return nil, storeError(err, "failed to load reports")
	}
	s.metrics.ObserveDBQuery(label, time.Since(start))
	return reports, nil
}
