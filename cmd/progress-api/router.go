package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gwd-progress-api/api/swagger"
	"github.com/noah-isme/gwd-progress-api/internal/handler"
	"github.com/noah-isme/gwd-progress-api/internal/middleware"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	"github.com/noah-isme/gwd-progress-api/internal/service"
	"github.com/noah-isme/gwd-progress-api/pkg/config"
	"github.com/noah-isme/gwd-progress-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gwd-progress-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gwd-progress-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	backend   *backend
	registry  *schema.Registry
	metrics   *service.MetricsService
	auth      *service.AuthService
	users     *service.UserService
	reports   *service.ReportService
	dashboard *service.DashboardService
	analytics *service.AnalyticsService
	exports   *service.ExportService
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Degraded(d.backend.degraded))

	metricsHandler := handler.NewMetricsHandler(d.metrics, d.backend.ready, d.backend.degraded)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(d.auth)
	userHandler := handler.NewUserHandler(d.users)
	reportHandler := handler.NewReportHandler(d.reports)
	dashboardHandler := handler.NewDashboardHandler(d.dashboard)
	analyticsHandler := handler.NewAnalyticsHandler(d.analytics)
	exportHandler := handler.NewExportHandler(d.exports)
	schemaHandler := handler.NewSchemaHandler(d.registry)

	api := r.Group(d.cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/demo-login", authHandler.DemoLogin)
	api.GET("/schema", schemaHandler.Get)
	api.GET("/exports/download/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.auth))

	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/change-password", authHandler.ChangePassword)

	reports := secured.Group("/reports")
	reports.GET("", reportHandler.List)
	adminOrOwner := middleware.Allow(middleware.Roles(models.RoleStateAdmin), middleware.OwnDistrict("district"))
	reports.GET("/:district/:year/:month", adminOrOwner, reportHandler.Get)
	reports.PUT("/:district/:year/:month", middleware.Allow(middleware.OwnDistrict("district")), reportHandler.Save)
	reports.POST("/:district/:year/:month/review", middleware.RequireRoles(models.RoleStateAdmin), reportHandler.Review)
	reports.GET("/:district/:year/:month/history", adminOrOwner, reportHandler.History)

	dashboard := secured.Group("/dashboard")
	dashboard.GET("", middleware.RequireRoles(models.RoleStateAdmin), dashboardHandler.Period)
	dashboard.GET("/districts/:district/summary", adminOrOwner, dashboardHandler.District)

	analytics := secured.Group("/analytics")
	analytics.GET("/metrics", analyticsHandler.Metrics)
	analytics.GET("/districts", middleware.RequireRoles(models.RoleStateAdmin), analyticsHandler.Districts)
	analytics.GET("/trends", analyticsHandler.Trends)
	analytics.GET("/categories", analyticsHandler.Categories)

	exports := secured.Group("/exports", middleware.RequireRoles(models.RoleStateAdmin))
	exports.POST("", middleware.Audit(d.backend.audit, d.logger, models.AuditActionReportExport, "exports"), exportHandler.Create)
	exports.POST("/summary", exportHandler.PreviewSummary)

	users := secured.Group("/users")
	users.GET("", middleware.RequireRoles(models.RoleStateAdmin), userHandler.List)
	users.POST("", middleware.RequireRoles(models.RoleStateAdmin), userHandler.Create)
	users.GET("/:id", middleware.Allow(middleware.Roles(models.RoleStateAdmin), middleware.Self("id")), userHandler.Get)
	users.PATCH("/:id/flags", middleware.RequireRoles(models.RoleStateAdmin), userHandler.UpdateFlags)

	return r
}
