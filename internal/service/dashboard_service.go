package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

type reportLister interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the state overview and per-district progress.
type DashboardService struct {
	reports  reportLister
	registry *schema.Registry
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Reports  reportLister
	Registry *schema.Registry
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := params.Registry
	if registry == nil {
		registry = schema.Default()
	}
	return &DashboardService{
		reports:  params.Reports,
		registry: registry,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// yearCachePattern covers every period of year. Year-to-date figures of later
// months depend on earlier reports.
func yearCachePattern(year int) string {
	return fmt.Sprintf("dash:%d:*", year)
}

func districtCachePattern(district string) string {
	return fmt.Sprintf("dash:district:%s:*", district)
}

// Period returns the state overview for one month and reports whether it was served from cache.
func (s *DashboardService) Period(ctx context.Context, year, month int, actor models.Actor) (*dto.DashboardResponse, bool, error) {
	if !actor.IsAdmin() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "dashboard is restricted to administrators")
	}
	if month < 1 || month > 12 {
		return nil, false, appErrors.Validationf("month must be between 1 and 12")
	}
	if year < minReportYear || year > maxReportYear {
		return nil, false, appErrors.Validationf("year must be between %d and %d", minReportYear, maxReportYear)
	}

	cacheKey := fmt.Sprintf("dash:%d:%d:all", year, month)
	var cached dto.DashboardResponse
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	var periodReports, yearReports []models.MonthlyReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periodReports, err = s.reports.List(gctx, models.ReportFilter{Year: &year, Month: &month})
		return err
	})
	g.Go(func() error {
		var err error
		yearReports, err = s.reports.List(gctx, models.ReportFilter{
			Year:   &year,
			Status: []models.ReportStatus{models.ReportStatusApproved},
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, storeError(err, "failed to load dashboard reports")
	}

	summary := s.composePeriod(year, month, periodReports, yearReports)
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) composePeriod(year, month int, periodReports, yearReports []models.MonthlyReport) *dto.DashboardResponse {
	districts := s.registry.Districts()
	byDistrict := make(map[string]models.MonthlyReport, len(periodReports))
	for _, r := range periodReports {
		if s.registry.HasDistrict(r.District) {
			byDistrict[r.District] = r
		}
	}

	rate, submitted := SubmissionRate(s.registry, periodReports)
	summary := &dto.DashboardResponse{
		Year:               year,
		Month:              month,
		TotalDistricts:     len(districts),
		SubmittedDistricts: submitted,
		SubmissionRate:     rate,
		Districts:          make([]dto.DistrictStatus, 0, len(districts)),
		GeneratedAt:        s.now().UTC(),
	}

	var known []models.MonthlyReport
	for _, district := range districts {
		row := dto.DistrictStatus{District: district, Status: dto.NotSubmitted}
		if r, ok := byDistrict[district]; ok {
			known = append(known, r)
			row.Status = string(r.Status)
			row.SubmittedAt = r.SubmittedAt
			modified := r.LastModified
			row.LastModified = &modified
			switch r.Status {
			case models.ReportStatusApproved:
				summary.ApprovedCount++
			case models.ReportStatusSubmitted:
				summary.PendingCount++
			case models.ReportStatusDraft:
				summary.DraftCount++
			case models.ReportStatusRejected:
				summary.RejectedCount++
			}
		}
		summary.Districts = append(summary.Districts, row)
	}
	summary.TotalExpenditure = ExpenditureTotal(s.registry, known)

	var ytd []models.MonthlyReport
	for _, r := range yearReports {
		if r.Status == models.ReportStatusApproved && r.Month <= month && s.registry.HasDistrict(r.District) {
			ytd = append(ytd, r)
		}
	}
	summary.YearToDate = dto.YearToDate{
		ApprovedReports:  len(ytd),
		TotalExpenditure: ExpenditureTotal(s.registry, ytd),
	}
	return summary
}

// DistrictProgress summarises approved reports of one district, optionally within a year.
func (s *DashboardService) DistrictProgress(ctx context.Context, district string, year *int, actor models.Actor) (*dto.DistrictProgressResponse, bool, error) {
	if !s.registry.HasDistrict(district) {
		return nil, false, appErrors.Validationf("unknown district %q", district)
	}
	if err := authorizeDistrictRead(actor, district); err != nil {
		return nil, false, err
	}

	scope := "all"
	if year != nil {
		scope = fmt.Sprintf("%d", *year)
	}
	cacheKey := fmt.Sprintf("dash:district:%s:%s", district, scope)
	var cached dto.DistrictProgressResponse
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	reports, err := s.reports.List(ctx, models.ReportFilter{
		District: &district,
		Year:     year,
		Status:   []models.ReportStatus{models.ReportStatusApproved},
	})
	if err != nil {
		return nil, false, storeError(err, "failed to load district reports")
	}

	resp := &dto.DistrictProgressResponse{
		District:        district,
		Year:            year,
		ApprovedReports: len(reports),
		Totals:          MetricTotals(s.registry.NumericMetrics(), reports),
		GeneratedAt:     s.now().UTC(),
	}
	if len(reports) > 0 {
		sorted := append([]models.MonthlyReport(nil), reports...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Key().Period() < sorted[j].Key().Period()
		})
		latest := sorted[len(sorted)-1]
		resp.Latest = &dto.LatestProgress{
			Period:     latest.Key().Period(),
			Categories: RepresentativeValues(s.registry, latest),
		}
	}

	s.persistCache(ctx, cacheKey, resp)
	return resp, false, nil
}

// tryCache reports a hit. Cache failures degrade to a miss.
func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
