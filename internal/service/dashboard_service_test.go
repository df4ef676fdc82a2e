package service

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu     sync.Mutex
	items  map[string][]byte
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func dashboardFixture() *memoryReportStore {
	jan := approvedReport("District 1", 2025, 1, models.ReportData{"drilling": {"drilling_expenditure": 100.0}})
	aprApproved := approvedReport("District 1", 2025, 4, models.ReportData{"drilling": {"drilling_expenditure": 50.0}})
	aprSubmitted := approvedReport("District 2", 2025, 4, models.ReportData{"recharge": {"recharge_expenditure": 25.0}})
	aprSubmitted.Status = models.ReportStatusSubmitted
	aprDraft := approvedReport("District 5", 2025, 4, models.ReportData{})
	aprDraft.Status = models.ReportStatusDraft
	may := approvedReport("District 1", 2025, 5, models.ReportData{"drilling": {"borewells_completed": 7.0, "drilling_expenditure": 999.0}})
	return newMemoryReportStore(jan, aprApproved, aprSubmitted, aprDraft, may)
}

func TestDashboardPeriod(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Reports: dashboardFixture(), Logger: zap.NewNop()})

	summary, cached, err := svc.Period(context.Background(), 2025, 4, adminActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 14, summary.TotalDistricts)
	assert.Equal(t, 2, summary.SubmittedDistricts)
	assert.Equal(t, 14.3, summary.SubmissionRate)
	assert.Equal(t, 1, summary.ApprovedCount)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 1, summary.DraftCount)
	assert.Equal(t, 0, summary.RejectedCount)
	assert.Equal(t, 75.0, summary.TotalExpenditure)
	assert.Equal(t, 2, summary.YearToDate.ApprovedReports)
	assert.Equal(t, 150.0, summary.YearToDate.TotalExpenditure)

	require.Len(t, summary.Districts, 14)
	assert.Equal(t, "District 1", summary.Districts[0].District)
	assert.Equal(t, "approved", summary.Districts[0].Status)
	assert.Equal(t, dto.NotSubmitted, summary.Districts[2].Status)
	assert.Nil(t, summary.Districts[2].LastModified)
}

func TestDashboardPeriodRequiresAdmin(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Reports: dashboardFixture()})
	_, _, err := svc.Period(context.Background(), 2025, 4, districtActor("District 1"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = svc.Period(context.Background(), 2025, 0, adminActor())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDashboardPeriodUsesCache(t *testing.T) {
	store := dashboardFixture()
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(DashboardServiceParams{Reports: store, Cache: cache})

	_, cached, err := svc.Period(context.Background(), 2025, 4, adminActor())
	require.NoError(t, err)
	assert.False(t, cached)
	lists := store.lists

	summary, cached, err := svc.Period(context.Background(), 2025, 4, adminActor())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, summary.ApprovedCount)
	assert.Equal(t, lists, store.lists)

	require.NoError(t, cache.Invalidate(context.Background(), yearCachePattern(2025)))
	_, cached, err = svc.Period(context.Background(), 2025, 4, adminActor())
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestReportReviewRefreshesLaterMonthsYearToDate(t *testing.T) {
	ctx := context.Background()
	store := newMemoryReportStore()
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	reports := NewReportService(ReportServiceParams{Store: store, Cache: cache, Logger: zap.NewNop()})
	dashboard := NewDashboardService(DashboardServiceParams{Reports: store, Cache: cache})
	march := models.ReportKey{District: "District 3", Year: 2025, Month: 3}

	_, err := reports.Save(ctx, march, saveRequest(models.ReportStatusSubmitted, 4), districtActor("District 3"), dto.RequestMeta{})
	require.NoError(t, err)

	april, _, err := dashboard.Period(ctx, 2025, 4, adminActor())
	require.NoError(t, err)
	assert.Equal(t, 0, april.YearToDate.ApprovedReports)

	_, err = reports.Review(ctx, march, models.ReviewApprove, "", adminActor(), dto.RequestMeta{})
	require.NoError(t, err)

	april, cached, err := dashboard.Period(ctx, 2025, 4, adminActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, april.YearToDate.ApprovedReports)
}

func TestDashboardCacheFailureFallsBackToStore(t *testing.T) {
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.getErr = errors.New("redis down")
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(DashboardServiceParams{Reports: dashboardFixture(), Cache: cache})

	summary, cached, err := svc.Period(context.Background(), 2025, 4, adminActor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, summary.ApprovedCount)
}

func TestDashboardPeriodStoreFailure(t *testing.T) {
	store := dashboardFixture()
	store.listErr = errors.New("relation missing")
	svc := NewDashboardService(DashboardServiceParams{Reports: store})
	_, _, err := svc.Period(context.Background(), 2025, 4, adminActor())
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	store.listErr = fmt.Errorf("list: %w", driver.ErrBadConn)
	_, _, err = svc.Period(context.Background(), 2025, 4, adminActor())
	assert.ErrorIs(t, err, appErrors.ErrBackendUnavailable)
}

func TestDashboardDistrictProgress(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Reports: dashboardFixture()})
	year := 2025

	progress, _, err := svc.DistrictProgress(context.Background(), "District 1", &year, districtActor("District 1"))
	require.NoError(t, err)
	assert.Equal(t, 3, progress.ApprovedReports)
	require.NotNil(t, progress.Latest)
	assert.Equal(t, "2025-05", progress.Latest.Period)
	assert.Equal(t, "drilling", progress.Latest.Categories[1].CategoryID)
	assert.Equal(t, 7.0, progress.Latest.Categories[1].Total)

	var expenditure float64
	for _, total := range progress.Totals {
		if total.Metric == "drilling.drilling_expenditure" {
			expenditure = total.Total
		}
	}
	assert.Equal(t, 1149.0, expenditure)

	_, _, err = svc.DistrictProgress(context.Background(), "District 1", nil, districtActor("District 2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	empty, _, err := svc.DistrictProgress(context.Background(), "District 9", nil, adminActor())
	require.NoError(t, err)
	assert.Nil(t, empty.Latest)
	assert.Zero(t, empty.ApprovedReports)
}
