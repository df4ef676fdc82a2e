package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

type reportService interface {
	Get(ctx context.Context, key models.ReportKey, actor models.Actor) (*models.MonthlyReport, error)
	List(ctx context.Context, filter models.ReportFilter, actor models.Actor) ([]models.MonthlyReport, error)
	Save(ctx context.Context, key models.ReportKey, in dto.SaveReportRequest, actor models.Actor, meta dto.RequestMeta) (*models.MonthlyReport, error)
	Review(ctx context.Context, key models.ReportKey, decision models.ReviewDecision, remarks string, actor models.Actor, meta dto.RequestMeta) (*models.MonthlyReport, error)
	History(ctx context.Context, key models.ReportKey, actor models.Actor) ([]dto.ReportHistoryEntry, error)
}

// ReportHandler exposes monthly progress report endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// List godoc
// @Summary List monthly reports
// @Tags Reports
// @Produce json
// @Param district query string false "District"
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := reportFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reports, err := h.service.List(c.Request.Context(), filter, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Get godoc
// @Summary Get a monthly report
// @Tags Reports
// @Produce json
// @Param district path string true "District"
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{district}/{year}/{month} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	key, err := reportKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Get(c.Request.Context(), key, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	setETag(c, report)
	response.JSON(c, http.StatusOK, report, nil)
}

// Save godoc
// @Summary Save or submit a monthly report
// @Description Upserts the district payload as draft or submitted. An If-Match header or expectedVersion enables the version guard.
// @Tags Reports
// @Accept json
// @Produce json
// @Param district path string true "District"
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Param If-Match header string false "Expected version"
// @Param payload body dto.SaveReportRequest true "Report payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{district}/{year}/{month} [put]
func (h *ReportHandler) Save(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	key, err := reportKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SaveReportRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ExpectedVersion == nil {
		expected, err := ifMatchVersion(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.ExpectedVersion = expected
	}

	report, err := h.service.Save(c.Request.Context(), key, req, actor, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	setETag(c, report)
	response.JSON(c, http.StatusOK, report, nil)
}

// Review godoc
// @Summary Review a submitted report
// @Tags Reports
// @Accept json
// @Produce json
// @Param district path string true "District"
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Param payload body dto.ReviewReportRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports/{district}/{year}/{month}/review [post]
func (h *ReportHandler) Review(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	key, err := reportKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReviewReportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.service.Review(c.Request.Context(), key, req.Decision, req.Remarks, actor, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	setETag(c, report)
	response.JSON(c, http.StatusOK, report, nil)
}

// History godoc
// @Summary Workflow history of a report
// @Tags Reports
// @Produce json
// @Param district path string true "District"
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Success 200 {object} response.Envelope
// @Router /reports/{district}/{year}/{month}/history [get]
func (h *ReportHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	key, err := reportKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.History(c.Request.Context(), key, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

func reportFilterFromQuery(c *gin.Context) (models.ReportFilter, error) {
	var filter models.ReportFilter
	filter.District = optionalStringQuery(c, "district")

	year, err := optionalIntQuery(c, "year")
	if err != nil {
		return filter, err
	}
	filter.Year = year
	month, err := optionalIntQuery(c, "month")
	if err != nil {
		return filter, err
	}
	filter.Month = month

	for _, raw := range strings.Split(c.Query("status"), ",") {
		if status := strings.TrimSpace(raw); status != "" {
			filter.Status = append(filter.Status, models.ReportStatus(status))
		}
	}
	return filter, nil
}

func ifMatchVersion(c *gin.Context) (*int, error) {
	raw := strings.Trim(strings.TrimSpace(c.GetHeader("If-Match")), `"`)
	if raw == "" || raw == "*" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, appErrors.Validationf("If-Match must carry a report version")
	}
	return &v, nil
}

func setETag(c *gin.Context, report *models.MonthlyReport) {
	if report == nil {
		return
	}
	c.Header("ETag", strconv.Quote(strconv.Itoa(report.Version)))
}
