package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Options controls which browser origins may call the portal API.
// An empty AllowedOrigins list admits any origin.
type Options struct {
	AllowedOrigins []string
	AllowedHeaders []string
	ExposedHeaders []string
	AllowedMethods []string
	MaxAge         time.Duration
}

// DefaultOptions covers the headers used by report saves (If-Match/ETag) and file downloads.
func DefaultOptions(origins []string) Options {
	return Options{
		AllowedOrigins: origins,
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "X-Request-ID", "X-Backend-Mode", "Content-Disposition"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		MaxAge:         10 * time.Minute,
	}
}

// New is shorthand for Handler(DefaultOptions(allowedOrigins)).
func New(allowedOrigins []string) gin.HandlerFunc {
	return Handler(DefaultOptions(allowedOrigins))
}

func Handler(opts Options) gin.HandlerFunc {
	origins := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		origins[normaliseOrigin(o)] = true
	}
	anyOrigin := len(origins) == 0

	allowHeaders := strings.Join(opts.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(opts.ExposedHeaders, ", ")
	allowMethods := strings.Join(opts.AllowedMethods, ", ")
	maxAge := strconv.Itoa(int(opts.MaxAge.Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		allowed := origin != "" && (anyOrigin || origins[normaliseOrigin(origin)])
		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if allowed {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

func normaliseOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
