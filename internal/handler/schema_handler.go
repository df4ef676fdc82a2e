package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/schema"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

// SchemaHandler serves the form schema clients render report forms from.
type SchemaHandler struct {
	registry *schema.Registry
}

// NewSchemaHandler constructs a SchemaHandler.
func NewSchemaHandler(registry *schema.Registry) *SchemaHandler {
	return &SchemaHandler{registry: registry}
}

// Get godoc
// @Summary Form schema
// @Description Categories, fields and districts of the monthly report form
// @Tags Schema
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schema [get]
func (h *SchemaHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.registry.Definition(), nil)
}
