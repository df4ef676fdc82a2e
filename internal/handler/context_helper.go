package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/middleware"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

// actorFromContext writes a 401 and returns false when the request carries no verified actor.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func requestMeta(c *gin.Context) dto.RequestMeta {
	return dto.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid payload"))
		return false
	}
	return true
}

// reportKeyFromPath reads :district, :year and :month.
func reportKeyFromPath(c *gin.Context) (models.ReportKey, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return models.ReportKey{}, appErrors.Validationf("year must be numeric")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return models.ReportKey{}, appErrors.Validationf("month must be numeric")
	}
	return models.ReportKey{District: c.Param("district"), Year: year, Month: month}, nil
}

func optionalIntQuery(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, appErrors.Validationf("%s must be numeric", name)
	}
	return &v, nil
}

func optionalStringQuery(c *gin.Context, name string) *string {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func withCacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	return middleware.ExtractMeta(c)
}
