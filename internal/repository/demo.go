package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/noah-isme/gwd-progress-api/internal/models"
)

// DemoReportStore stands in for the report table when no database is
// reachable. Writes succeed without persisting and reads come back empty.
type DemoReportStore struct{}

// Get never finds a report.
func (DemoReportStore) Get(context.Context, string) (*models.MonthlyReport, error) {
	return nil, sql.ErrNoRows
}

// List returns no reports.
func (DemoReportStore) List(context.Context, models.ReportFilter) ([]models.MonthlyReport, error) {
	return []models.MonthlyReport{}, nil
}

// Upsert accepts the write as a first version.
func (DemoReportStore) Upsert(_ context.Context, report *models.MonthlyReport, _ int) error {
	report.Version = 1
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	return nil
}

// UpdateReview never finds a submitted report.
func (DemoReportStore) UpdateReview(context.Context, string, ReviewUpdate) (*models.MonthlyReport, error) {
	return nil, sql.ErrNoRows
}

// DemoUserStore stands in for the users table in demo mode.
type DemoUserStore struct{}

// FindByEmail never finds a user.
func (DemoUserStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

// FindByID never finds a user.
func (DemoUserStore) FindByID(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

// UpdateLastLogin is a no-op.
func (DemoUserStore) UpdateLastLogin(context.Context, string, time.Time) error {
	return nil
}

// List returns no users.
func (DemoUserStore) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	return []models.User{}, 0, nil
}

// CountByRole reports zero users.
func (DemoUserStore) CountByRole(context.Context, models.UserRole) (int, error) {
	return 0, nil
}

// Create accepts the user without storing it.
func (DemoUserStore) Create(_ context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// UpdateFlags never finds a user.
func (DemoUserStore) UpdateFlags(context.Context, string, *bool, *bool) (*models.User, error) {
	return nil, sql.ErrNoRows
}

// DemoAuditStore drops audit entries.
type DemoAuditStore struct{}

// CreateAuditLog is a no-op.
func (DemoAuditStore) CreateAuditLog(context.Context, *models.AuditLog) error {
	return nil
}

// ListByResource returns no entries.
func (DemoAuditStore) ListByResource(context.Context, string, string) ([]models.AuditLog, error) {
	return []models.AuditLog{}, nil
}
