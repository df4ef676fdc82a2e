package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

func TestAnalyticsDistricts(t *testing.T) {
	svc := NewAnalyticsService(newMemoryReportStore(sampleReports()...), nil, NewMetricsService(), nil)

	out, err := svc.Districts(context.Background(), dto.AnalyticsQuery{Metric: "surveys.surveys_conducted"}, adminActor())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "District 1", out[0].District)

	_, err = svc.Districts(context.Background(), dto.AnalyticsQuery{}, districtActor("District 1"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Districts(context.Background(), dto.AnalyticsQuery{Metric: "surveys.unknown"}, adminActor())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAnalyticsTrendsScopedToOwnDistrict(t *testing.T) {
	svc := NewAnalyticsService(newMemoryReportStore(sampleReports()...), nil, nil, nil)

	out, err := svc.Trends(context.Background(), dto.AnalyticsQuery{}, districtActor("District 2"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2025-04", out[0].Period)
	assert.Equal(t, 3.0, out[0].Sum)

	other := "District 1"
	_, err = svc.Trends(context.Background(), dto.AnalyticsQuery{District: &other}, districtActor("District 2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAnalyticsCategories(t *testing.T) {
	svc := NewAnalyticsService(newMemoryReportStore(sampleReports()...), nil, nil, nil)
	month := 4
	out, err := svc.Categories(context.Background(), dto.AnalyticsQuery{Month: &month}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, 9.0, out[0].Total)

	bad := 13
	_, err = svc.Categories(context.Background(), dto.AnalyticsQuery{Month: &bad}, adminActor())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAnalyticsMetricsFollowRegistry(t *testing.T) {
	svc := NewAnalyticsService(newMemoryReportStore(), nil, nil, nil)
	metrics := svc.Metrics()
	require.NotEmpty(t, metrics)
	assert.Equal(t, "surveys.surveys_conducted", metrics[0].Key)
	for _, m := range metrics {
		assert.NotEqual(t, "surveys.surveys_remarks", m.Key)
	}
}
