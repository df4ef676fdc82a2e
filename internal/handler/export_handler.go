package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/service"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

const maxSummaryUpload = 10 << 20

type exportService interface {
	Generate(ctx context.Context, req dto.ExportRequest, actor models.Actor) (*models.ExportResult, error)
	ResolveDownload(token string) (*service.Download, error)
	ParseSummary(data []byte) ([]dto.SummaryRow, error)
}

// ExportHandler serves spreadsheet exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Export approved reports
// @Description Builds an Excel workbook (Summary and Raw Data sheets), CSV or PDF for one reporting period and returns a signed download link.
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ExportRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	dl, err := h.service.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer dl.File.Close()

	info, err := dl.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), dl.ContentType, dl.File, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, dl.FileName),
	})
}

// PreviewSummary godoc
// @Summary Read the Summary sheet of an exported workbook
// @Tags Exports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports/summary [post]
func (h *ExportHandler) PreviewSummary(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validationf("file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "unable to read upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSummaryUpload))
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "unable to read upload"))
		return
	}
	rows, err := h.service.ParseSummary(data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
