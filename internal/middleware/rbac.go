package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gwd-progress-api/internal/models"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
	"github.com/noah-isme/gwd-progress-api/pkg/response"
)

// Rule grants access to a request for an authenticated actor.
type Rule func(c *gin.Context, actor models.Actor) bool

// Allow passes the request on when any rule grants it, answers 401 without an
// actor and 403 otherwise.
func Allow(rules ...Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, rule := range rules {
			if rule(c, actor) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// Roles grants access to the listed roles.
func Roles(roles ...models.UserRole) Rule {
	set := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return func(_ *gin.Context, actor models.Actor) bool {
		return set[actor.Role]
	}
}

// Self grants access when the named path param holds the actor's own user id.
func Self(param string) Rule {
	return func(c *gin.Context, actor models.Actor) bool {
		id := c.Param(param)
		return id != "" && id == actor.UserID
	}
}

// OwnDistrict grants district users access to routes naming their own district.
func OwnDistrict(param string) Rule {
	return func(c *gin.Context, actor models.Actor) bool {
		if actor.Role != models.RoleDistrictUser || actor.District == "" {
			return false
		}
		return c.Param(param) == actor.District
	}
}

// RequireRoles is Allow(Roles(roles...)).
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return Allow(Roles(roles...))
}
