package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

type dashboardService interface {
	Period(ctx context.Context, year, month int, actor models.Actor) (*dto.DashboardResponse, bool, error)
	DistrictProgress(ctx context.Context, district string, year *int, actor models.Actor) (*dto.DistrictProgressResponse, bool, error)
}

// DashboardHandler serves the state and district dashboards.
type DashboardHandler struct {
	service dashboardService
	now     func() time.Time
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc, now: time.Now}
}

// Period godoc
// @Summary State dashboard for a reporting period
// @Description Submission status of every district plus the submission-rate KPI. Defaults to the current month.
// @Tags Dashboard
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Period(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	now := h.now()
	year, err := optionalIntQuery(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := optionalIntQuery(c, "month")
	if err != nil {
		response.Error(c, err)
		return
	}
	y, m := now.Year(), int(now.Month())
	if year != nil {
		y = *year
	}
	if month != nil {
		m = *month
	}

	res, hit, err := h.service.Period(c.Request.Context(), y, m, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, withCacheMeta(c, hit))
}

// District godoc
// @Summary District progress
// @Tags Dashboard
// @Produce json
// @Param district path string true "District"
// @Param year query int false "Year"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/districts/{district}/summary [get]
func (h *DashboardHandler) District(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := optionalIntQuery(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, hit, err := h.service.DistrictProgress(c.Request.Context(), c.Param("district"), year, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, withCacheMeta(c, hit))
}
