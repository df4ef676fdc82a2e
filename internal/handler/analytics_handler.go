package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

type analyticsService interface {
	Metrics() []schema.Metric
	Districts(ctx context.Context, q dto.AnalyticsQuery, actor models.Actor) ([]dto.DistrictAggregate, error)
	Trends(ctx context.Context, q dto.AnalyticsQuery, actor models.Actor) ([]dto.PeriodAggregate, error)
	Categories(ctx context.Context, q dto.AnalyticsQuery, actor models.Actor) ([]dto.CategoryTotal, error)
}

// AnalyticsHandler exposes aggregations over approved reports.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(svc analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Metrics godoc
// @Summary Numeric metrics available for analytics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/metrics [get]
func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Metrics(), nil)
}

// Districts godoc
// @Summary Per-district aggregation of a metric
// @Tags Analytics
// @Produce json
// @Param metric query string false "Metric key (category.field)"
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Success 200 {object} response.Envelope
// @Router /analytics/districts [get]
func (h *AnalyticsHandler) Districts(c *gin.Context) {
	actor, q, ok := h.query(c)
	if !ok {
		return
	}
	res, err := h.service.Districts(c.Request.Context(), q, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Trends godoc
// @Summary Monthly trend of a metric
// @Tags Analytics
// @Produce json
// @Param metric query string false "Metric key (category.field)"
// @Param year query int false "Year"
// @Param district query string false "District"
// @Success 200 {object} response.Envelope
// @Router /analytics/trends [get]
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	actor, q, ok := h.query(c)
	if !ok {
		return
	}
	res, err := h.service.Trends(c.Request.Context(), q, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Categories godoc
// @Summary Category totals of the representative fields
// @Tags Analytics
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Param district query string false "District"
// @Success 200 {object} response.Envelope
// @Router /analytics/categories [get]
func (h *AnalyticsHandler) Categories(c *gin.Context) {
	actor, q, ok := h.query(c)
	if !ok {
		return
	}
	res, err := h.service.Categories(c.Request.Context(), q, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func (h *AnalyticsHandler) query(c *gin.Context) (models.Actor, dto.AnalyticsQuery, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return models.Actor{}, dto.AnalyticsQuery{}, false
	}
	var q dto.AnalyticsQuery
	var err error
	if q.Year, err = optionalIntQuery(c, "year"); err != nil {
		response.Error(c, err)
		return actor, q, false
	}
	if q.Month, err = optionalIntQuery(c, "month"); err != nil {
		response.Error(c, err)
		return actor, q, false
	}
	q.District = optionalStringQuery(c, "district")
	q.Metric = c.Query("metric")
	return actor, q, true
}
