package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsTransitionsAndExports(t *testing.T) {
	m := NewMetricsService()
	m.ObserveReportTransition("", "draft")
	m.ObserveReportTransition("draft", "submitted")
	m.ObserveReportTransition("draft", "submitted")
	m.ObserveExport("xlsx")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("none", "draft")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("draft", "submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("xlsx")))
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.InDelta(t, 2.0/3.0, m.hitRatio(), 0.0001)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/dashboard", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gwd_http_requests_total{method="GET",route="/api/v1/dashboard",status="200"} 1`)

	var nilMetrics *MetricsService
	nilMetrics.ObserveReportTransition("draft", "submitted")
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
