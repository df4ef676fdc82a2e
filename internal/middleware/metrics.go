package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/service"
)

// unmatchedRoute labels 404s so probing clients cannot grow label cardinality.
const unmatchedRoute = "unmatched"

// Metrics observes latency per method, route template and status.
// Scrapes of skipPaths (typically /metrics itself) are not recorded.
func Metrics(metricsSvc *service.MetricsService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, ok := skip[route]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
