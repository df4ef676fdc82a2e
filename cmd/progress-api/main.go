package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/repository"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	"github.com/noah-isme/gwd-progress-api/internal/service"
	"github.com/noah-isme/gwd-progress-api/pkg/cache"
	"github.com/noah-isme/gwd-progress-api/pkg/config"
	"github.com/noah-isme/gwd-progress-api/pkg/jobs"
	"github.com/noah-isme/gwd-progress-api/pkg/logger"
	"github.com/noah-isme/gwd-progress-api/pkg/storage"
)

// @title GWD Monthly Progress API
// @version 1.0.0
// @description District monthly progress reporting, review and export for the Ground Water Department.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := loadRegistry(cfg.Schema.File)
	if err != nil {
		logr.Fatal("failed to load form schema", zap.String("file", cfg.Schema.File), zap.Error(err))
	}

	be, err := openBackend(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open backend", zap.Error(err))
	}
	defer be.close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	} else if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer redisClient.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.String("dir", cfg.Reports.StorageDir), zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	authSvc := service.NewAuthService(be.users, be.identity, be.audit, registry, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		DemoEnabled:       be.degraded,
	})
	userSvc := service.NewUserService(be.users, be.identity, be.audit, registry, validate, logr)
	reportSvc := service.NewReportService(service.ReportServiceParams{
		Store:    be.reports,
		Audit:    be.audit,
		Users:    be.users,
		Registry: registry,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Logger:   logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Reports:  be.reports,
		Registry: registry,
		Cache:    cacheSvc,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	analyticsSvc := service.NewAnalyticsService(be.reports, registry, metrics, logr)
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Reports:  be.reports,
		Registry: registry,
		Storage:  fileStore,
		Signer:   signer,
		Metrics:  metrics,
		Logger:   logr,
		Config: service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		},
	})

	if cfg.Bootstrap.AdminEmail != "" && !be.degraded {
		created, err := userSvc.Bootstrap(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			logr.Error("failed to bootstrap administrator", zap.Error(err))
		} else if created {
			logr.Info("bootstrapped state administrator", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
	}

	scheduler := jobs.NewScheduler(jobs.SchedulerConfig{MaxRetries: 2, RetryDelay: 5 * time.Second, Logger: logr})
	scheduler.Every("export_cleanup", cfg.Reports.CleanupInterval, exportCleanupTask(exportSvc, logr))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	r := newRouter(routerDeps{
		cfg:       cfg,
		logger:    logr,
		backend:   be,
		registry:  registry,
		metrics:   metrics,
		auth:      authSvc,
		users:     userSvc,
		reports:   reportSvc,
		dashboard: dashboardSvc,
		analytics: analyticsSvc,
		exports:   exportSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("degraded", be.degraded))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.Default(), nil
	}
	return schema.Load(path)
}

func exportCleanupTask(svc *service.ExportService, logr *zap.Logger) jobs.Task {
	return func(context.Context) error {
		removed, err := svc.Cleanup(0)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logr.Info("expired exports removed", zap.Int("count", len(removed)))
		}
		return nil
	}
}
