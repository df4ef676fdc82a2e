package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "gwd"

// MetricsService owns a private Prometheus registry for the portal. Every
// method is safe on a nil receiver so callers can run without instrumentation.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpLatency *prometheus.HistogramVec
	httpTotal   *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec
	cacheLatency prometheus.Histogram
	cacheWrites  prometheus.Histogram
	hits, misses atomic.Uint64

	storeLatency *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	exports      *prometheus.CounterVec
}

func NewMetricsService() *MetricsService {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: metricsNamespace}),
	)
	f := promauto.With(reg)
	m := &MetricsService{registry: reg}

	m.httpLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "Latency of API requests by route template.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})
	m.httpTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
		Help: "API requests by route template and status.",
	}, []string{"method", "route", "status"})

	m.cacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "dashboard_cache", Name: "lookups_total",
		Help: "Dashboard cache lookups by result.",
	}, []string{"result"})
	m.cacheLatency = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "dashboard_cache", Name: "read_seconds",
		Help: "Dashboard cache read latency.",
	})
	m.cacheWrites = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "dashboard_cache", Name: "write_seconds",
		Help: "Dashboard cache write latency.",
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "dashboard_cache", Name: "hit_ratio",
		Help: "Share of dashboard cache lookups served from cache since start.",
	}, m.hitRatio)

	m.storeLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "store", Name: "query_seconds",
		Help: "Latency of report store scans behind aggregation.",
	}, []string{"query"})
	m.transitions = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "reports", Name: "transitions_total",
		Help: "Monthly report status changes.",
	}, []string{"from", "to"})
	m.exports = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "reports", Name: "exports_total",
		Help: "Generated exports by file format.",
	}, []string{"format"})

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpLatency.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, route, code).Inc()
}

// RecordCacheOperation counts a dashboard cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *MetricsService) hitRatio() float64 {
	hits, misses := m.hits.Load(), m.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveDBQuery times a named report store scan.
func (m *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(query).Observe(duration.Seconds())
}

// ObserveReportTransition counts a workflow step; an empty from means the report was just created.
func (m *MetricsService) ObserveReportTransition(from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
