package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/identity"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/repository"
	"github.com/noah-isme/gwd-progress-api/internal/service"
	"github.com/noah-isme/gwd-progress-api/pkg/config"
	"github.com/noah-isme/gwd-progress-api/pkg/database"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFlags(ctx context.Context, id string, isActive, canEdit *bool) (*models.User, error)
}

// backend groups the stores every service reads and writes through.
type backend struct {
	db       *sqlx.DB
	reports  service.ReportStore
	users    userStore
	audit    service.AuditStore
	identity identity.Provider
	degraded bool
}

func (b *backend) ready(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	return b.db.PingContext(ctx)
}

func (b *backend) close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

// openBackend connects to Postgres and, depending on the demo mode, falls back
// to no-op stores when the database cannot be reached.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.DemoMode == config.DemoModeOn {
		logger.Warn("demo mode forced, running without persistence")
		return demoBackend(), nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		if cfg.DemoMode == config.DemoModeOff {
			return nil, err
		}
		logger.Warn("database unreachable, falling back to demo mode", zap.Error(err))
		return demoBackend(), nil
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &backend{
		db:       db,
		reports:  repository.NewReportRepository(db),
		users:    repository.NewUserRepository(db),
		audit:    repository.NewAuditRepository(db),
		identity: identity.NewLocalProvider(db),
	}, nil
}

func demoBackend() *backend {
	return &backend{
		reports:  repository.DemoReportStore{},
		users:    repository.DemoUserStore{},
		audit:    repository.DemoAuditStore{},
		identity: identity.DemoProvider{},
		degraded: true,
	}
}
