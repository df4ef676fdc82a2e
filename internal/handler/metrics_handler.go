package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/service"
)

// ReadinessCheck reports whether a backing dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  *service.MetricsService
	ready    ReadinessCheck
	degraded bool
}

// NewMetricsHandler constructs a metrics handler. ready may be nil when no
// persistent backend is configured.
func NewMetricsHandler(metrics *service.MetricsService, ready ReadinessCheck, degraded bool) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, ready: ready, degraded: degraded}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.backend()})
}

// Ready reports 503 when the report store cannot be reached.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "backend": h.backend()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "backend": h.backend()})
}

func (h *MetricsHandler) backend() string {
	if h.degraded {
		return "demo"
	}
	return "postgres"
}
