package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"

	// BackendModeHeader tells clients which store answered the request.
	BackendModeHeader = "X-Backend-Mode"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		meta := ensureMeta(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// Degraded flags every response when the API runs on in-memory demo stores.
func Degraded(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled {
			c.Set(response.DegradedKey, true)
			c.Header(BackendModeHeader, "demo")
		}
		c.Next()
	}
}

// SetCacheHit records cache hit information for the current response.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	newMeta := make(map[string]interface{})
	if c != nil {
		c.Set(responseMetaKey, newMeta)
	}
	return newMeta
}
