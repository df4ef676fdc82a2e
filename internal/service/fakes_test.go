package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/gwd-progress-api/internal/identity"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/repository"
)

type memoryReportStore struct {
	mu      sync.Mutex
	reports map[string]models.MonthlyReport
	listErr error
	lists   int
}

func newMemoryReportStore(reports ...models.MonthlyReport) *memoryReportStore {
	s := &memoryReportStore{reports: map[string]models.MonthlyReport{}}
	for _, r := range reports {
		if r.ID == "" {
			r.ID = r.Key().String()
		}
		s.reports[r.ID] = r
	}
	return s
}

func (s *memoryReportStore) Get(_ context.Context, id string) (*models.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *memoryReportStore) List(_ context.Context, filter models.ReportFilter) ([]models.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.MonthlyReport
	for _, r := range s.reports {
		if filter.District != nil && r.District != *filter.District {
			continue
		}
		if filter.Year != nil && r.Year != *filter.Year {
			continue
		}
		if filter.Month != nil && r.Month != *filter.Month {
			continue
		}
		if len(filter.Status) > 0 && !containsStatus(filter.Status, r.Status) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryReportStore) Upsert(_ context.Context, report *models.MonthlyReport, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reports[report.ID]
	if ok {
		if existing.Status == models.ReportStatusApproved {
			return sql.ErrNoRows
		}
		if expectedVersion > 0 && existing.Version != expectedVersion {
			return sql.ErrNoRows
		}
		report.Version = existing.Version + 1
		report.CreatedAt = existing.CreatedAt
	} else {
		report.Version = 1
		report.CreatedAt = time.Now().UTC()
	}
	s.reports[report.ID] = *report
	return nil
}

func (s *memoryReportStore) UpdateReview(_ context.Context, id string, update repository.ReviewUpdate) (*models.MonthlyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reports[id]
	if !ok || existing.Status != models.ReportStatusSubmitted {
		return nil, sql.ErrNoRows
	}
	existing.Status = update.Status
	reviewer := update.ReviewedBy
	at := update.At
	existing.ReviewedBy = &reviewer
	existing.ReviewedAt = &at
	if update.Remarks != nil {
		existing.ReviewRemarks = update.Remarks
	}
	existing.LastModified = update.At
	existing.Version++
	s.reports[id] = existing
	return &existing, nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (a *memoryAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	log.CreatedAt = time.Now().UTC()
	a.logs = append(a.logs, *log)
	return nil
}

func (a *memoryAudit) ListByResource(_ context.Context, resource, resourceID string) ([]models.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditLog
	for _, l := range a.logs {
		if l.Resource == resource && l.ResourceID != nil && *l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.logs))
	for i, l := range a.logs {
		out[i] = l.Action
	}
	return out
}

type memoryUserRepo struct {
	users     map[string]*models.User
	listUsers []models.User
	findErr   error
	createErr []error
}

func newMemoryUserRepo(users ...models.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		repo.users[u.ID] = &u
	}
	return repo
}

func (m *memoryUserRepo) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	if m.listUsers != nil {
		return m.listUsers, len(m.listUsers), nil
	}
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *memoryUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserRepo) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		return err
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *memoryUserRepo) UpdateFlags(_ context.Context, id string, isActive, canEdit *bool) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if isActive != nil {
		u.IsActive = *isActive
	}
	if canEdit != nil {
		u.CanEdit = *canEdit
	}
	copy := *u
	return &copy, nil
}

func (m *memoryUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if u, ok := m.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

type fakeIdentity struct {
	passwords map[string]string
	emails    map[string]string
	nextID    int
	deleteErr error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{passwords: map[string]string{}, emails: map[string]string{}}
}

func (f *fakeIdentity) CreateUser(_ context.Context, email, password, _ string) (string, error) {
	if _, ok := f.emails[email]; ok {
		return "", identity.ErrEmailExists
	}
	f.nextID++
	uid := "uid-" + strconv.Itoa(f.nextID)
	f.emails[email] = uid
	f.passwords[uid] = password
	return uid, nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, email, password string) (string, error) {
	uid, ok := f.emails[email]
	if !ok || f.passwords[uid] != password {
		return "", identity.ErrInvalidCredentials
	}
	return uid, nil
}

func (f *fakeIdentity) VerifyPassword(_ context.Context, uid, password string) error {
	stored, ok := f.passwords[uid]
	if !ok {
		return identity.ErrUnknownUser
	}
	if stored != password {
		return identity.ErrInvalidCredentials
	}
	return nil
}

func (f *fakeIdentity) UpdatePassword(_ context.Context, uid, password string) error {
	if _, ok := f.passwords[uid]; !ok {
		return identity.ErrUnknownUser
	}
	f.passwords[uid] = password
	return nil
}

func (f *fakeIdentity) DeleteUser(_ context.Context, uid string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for email, id := range f.emails {
		if id == uid {
			delete(f.emails, email)
		}
	}
	delete(f.passwords, uid)
	return nil
}

func districtActor(district string) models.Actor {
	return models.Actor{UserID: "user-" + district, Role: models.RoleDistrictUser, District: district, IsActive: true, CanEdit: true}
}

func adminActor() models.Actor {
	return models.Actor{UserID: "admin-1", Role: models.RoleStateAdmin, IsActive: true, CanEdit: true}
}

func approvedReport(district string, year, month int, data models.ReportData) models.MonthlyReport {
	return models.MonthlyReport{
		ID:           models.ReportKey{District: district, Year: year, Month: month}.String(),
		District:     district,
		Year:         year,
		Month:        month,
		Data:         data,
		Status:       models.ReportStatusApproved,
		LastModified: time.Date(year, time.Month(month), 28, 0, 0, 0, 0, time.UTC),
		Version:      3,
	}
}
