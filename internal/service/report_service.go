package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/repository"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

const (
	minReportYear = 2000
	maxReportYear = 2100
	reportsAudit  = "reports"
)

// ReportStore persists monthly reports.
type ReportStore interface {
	Get(ctx context.Context, id string) (*models.MonthlyReport, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.MonthlyReport, error)
	Upsert(ctx context.Context, report *models.MonthlyReport, expectedVersion int) error
	UpdateReview(ctx context.Context, id string, update repository.ReviewUpdate) (*models.MonthlyReport, error)
}

// AuditStore records and reads audit entries.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error)
}

type actorLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ReportService applies the submission workflow to the report store.
type ReportService struct {
	store    ReportStore
	audit    AuditStore
	users    actorLookup
	registry *schema.Registry
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Store    ReportStore
	Audit    AuditStore
	Users    actorLookup
	Registry *schema.Registry
	Cache    *CacheService
	Metrics  *MetricsService
	Logger   *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(params ReportServiceParams) *ReportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := params.Registry
	if registry == nil {
		registry = schema.Default()
	}
	return &ReportService{
		store:    params.Store,
		audit:    params.Audit,
		users:    params.Users,
		registry: registry,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateKey checks that key names a registry district and a sane period.
func ValidateKey(reg *schema.Registry, key models.ReportKey) error {
	if !reg.HasDistrict(key.District) {
		return appErrors.Validationf("unknown district %q", key.District)
	}
	if key.Month < 1 || key.Month > 12 {
		return appErrors.Validationf("month must be between 1 and 12")
	}
	if key.Year < minReportYear || key.Year > maxReportYear {
		return appErrors.Validationf("year must be between %d and %d", minReportYear, maxReportYear)
	}
	return nil
}

// Save writes the whole report for key as draft or submitted. Without an
// expected version concurrent saves are last-write-wins.
func (s *ReportService) Save(ctx context.Context, key models.ReportKey, in dto.SaveReportRequest, actor models.Actor, meta dto.RequestMeta) (*models.MonthlyReport, error) {
	if err := ValidateKey(s.registry, key); err != nil {
		return nil, err
	}
	actor = s.refreshActor(ctx, actor)
	if actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrators review reports and cannot edit them")
	}
	if in.Status != models.ReportStatusDraft && in.Status != models.ReportStatusSubmitted {
		return nil, appErrors.Validationf("status must be draft or submitted")
	}
	data, err := s.registry.Normalize(in.Data)
	if err != nil {
		return nil, err
	}

	current, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(key, current, in.Status, actor, "")
	if err != nil {
		return nil, err
	}

	expected := 0
	if in.ExpectedVersion != nil {
		expected = *in.ExpectedVersion
		stored := 0
		if current != nil {
			stored = current.Version
		}
		if stored != expected {
			return nil, versionConflict(expected, stored)
		}
	}

	now := s.now().UTC()
	report := &models.MonthlyReport{
		ID:           key.String(),
		District:     key.District,
		Year:         key.Year,
		Month:        key.Month,
		Data:         models.ReportData(data),
		Status:       transition.To,
		SubmittedBy:  actor.UserID,
		LastModified: now,
	}
	if current != nil {
		report.SubmittedAt = current.SubmittedAt
		report.ReviewedBy = current.ReviewedBy
		report.ReviewedAt = current.ReviewedAt
		report.ReviewRemarks = current.ReviewRemarks
		report.CreatedAt = current.CreatedAt
	}
	if transition.To == models.ReportStatusSubmitted {
		report.SubmittedAt = &now
	}

	if err := s.store.Upsert(ctx, report, expected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.explainRejectedWrite(ctx, key, expected)
		}
		return nil, storeError(err, "failed to save report")
	}

	s.afterTransition(ctx, key, transition, actor, meta, map[string]interface{}{"status": report.Status, "version": report.Version})
	return report, nil
}

// Review records an admin decision on a submitted report.
func (s *ReportService) Review(ctx context.Context, key models.ReportKey, decision models.ReviewDecision, remarks string, actor models.Actor, meta dto.RequestMeta) (*models.MonthlyReport, error) {
	if err := ValidateKey(s.registry, key); err != nil {
		return nil, err
	}
	target, ok := reviewTargets[decision]
	if !ok {
		return nil, appErrors.Validationf("unknown decision %q", decision)
	}
	actor = s.refreshActor(ctx, actor)

	current, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(key, current, target, actor, remarks)
	if err != nil {
		return nil, err
	}

	update := repository.ReviewUpdate{
		Status:     transition.To,
		ReviewedBy: actor.UserID,
		At:         s.now().UTC(),
	}
	if remarks != "" {
		update.Remarks = &remarks
	}
	report, err := s.store.UpdateReview(ctx, key.String(), update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "report is no longer awaiting review")
		}
		return nil, storeError(err, "failed to review report")
	}

	s.afterTransition(ctx, key, transition, actor, meta, map[string]interface{}{"status": report.Status, "remarks": remarks})
	return report, nil
}

// Get returns a single report. District users may only read their own district.
func (s *ReportService) Get(ctx context.Context, key models.ReportKey, actor models.Actor) (*models.MonthlyReport, error) {
	if err := ValidateKey(s.registry, key); err != nil {
		return nil, err
	}
	if err := authorizeDistrictRead(actor, key.District); err != nil {
		return nil, err
	}
	report, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return report, nil
}

// List returns reports ordered by year and month. District users are scoped to their district.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter, actor models.Actor) ([]models.MonthlyReport, error) {
	if !actor.IsAdmin() {
		if filter.District != nil && *filter.District != actor.District {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "reports of other districts are not visible")
		}
		district := actor.District
		filter.District = &district
	}
	if filter.Month != nil && (*filter.Month < 1 || *filter.Month > 12) {
		return nil, appErrors.Validationf("month must be between 1 and 12")
	}
	for _, st := range filter.Status {
		if !st.Valid() {
			return nil, appErrors.Validationf("unknown status %q", st)
		}
	}
	reports, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list reports")
	}
	return reports, nil
}

// History returns the audit trail of a report's transitions.
func (s *ReportService) History(ctx context.Context, key models.ReportKey, actor models.Actor) ([]dto.ReportHistoryEntry, error) {
	if err := ValidateKey(s.registry, key); err != nil {
		return nil, err
	}
	if err := authorizeDistrictRead(actor, key.District); err != nil {
		return nil, err
	}
	logs, err := s.audit.ListByResource(ctx, reportsAudit, key.String())
	if err != nil {
		return nil, storeError(err, "failed to load report history")
	}
	out := make([]dto.ReportHistoryEntry, 0, len(logs))
	for _, l := range logs {
		entry := dto.ReportHistoryEntry{Action: l.Action, CreatedAt: l.CreatedAt}
		if l.UserID != nil {
			entry.UserID = *l.UserID
		}
		if len(l.OldValues) > 0 {
			entry.Previous = json.RawMessage(l.OldValues)
		}
		if len(l.NewValues) > 0 {
			entry.Current = json.RawMessage(l.NewValues)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *ReportService) load(ctx context.Context, key models.ReportKey) (*models.MonthlyReport, error) {
	report, err := s.store.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(err, "failed to load report")
	}
	return report, nil
}

// explainRejectedWrite turns a guarded upsert that matched no row into the
// error the caller should see.
func (s *ReportService) explainRejectedWrite(ctx context.Context, key models.ReportKey, expected int) error {
	current, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if current != nil && current.Status == models.ReportStatusApproved {
		return appErrors.Clone(appErrors.ErrForbidden, "approved reports are locked")
	}
	stored := 0
	if current != nil {
		stored = current.Version
	}
	return versionConflict(expected, stored)
}

// refreshActor overlays the stored account flags on the token snapshot so
// deactivation applies before the token expires.
func (s *ReportService) refreshActor(ctx context.Context, actor models.Actor) models.Actor {
	if s.users == nil || actor.UserID == "" {
		return actor
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to refresh actor", zap.String("user_id", actor.UserID), zap.Error(err))
		}
		return actor
	}
	actor.Role = user.Role
	actor.District = user.DistrictName()
	actor.IsActive = user.IsActive
	actor.CanEdit = user.CanEdit
	return actor
}

func (s *ReportService) afterTransition(ctx context.Context, key models.ReportKey, t Transition, actor models.Actor, meta dto.RequestMeta, newValues map[string]interface{}) {
	s.metrics.ObserveReportTransition(string(t.From), string(t.To))

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, yearCachePattern(key.Year), districtCachePattern(key.District))
	}

	if s.audit == nil {
		return
	}
	id := key.String()
	userID := actor.UserID
	oldPayload, _ := json.Marshal(map[string]interface{}{"status": t.From})
	newPayload, _ := json.Marshal(newValues)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     t.Action,
		Resource:   reportsAudit,
		ResourceID: &id,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record report audit log", zap.String("report_id", id), zap.Error(err))
	}
}

func authorizeDistrictRead(actor models.Actor, district string) error {
	if actor.IsAdmin() || actor.District == district {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "reports of other districts are not visible")
}

func versionConflict(expected, stored int) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("report version is %d, expected %d", stored, expected))
}
