package dto

import (
	"strings"

	"github.com/noah-isme/gwd-progress-api/internal/models"
)

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=6"`
	DisplayName string          `json:"displayName" validate:"max=255"`
	District    string          `json:"district"`
	Role        models.UserRole `json:"role" validate:"required,oneof=district_user state_admin"`
}

// UpdateUserFlagsRequest toggles account flags; omitted flags are left unchanged.
type UpdateUserFlagsRequest struct {
	IsActive *bool `json:"isActive"`
	CanEdit  *bool `json:"canEdit"`
}

// UserListQuery is the query string accepted by GET /users.
type UserListQuery struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Role      string `form:"role" binding:"omitempty,oneof=district_user state_admin"`
	District  string `form:"district"`
	Active    *bool  `form:"active"`
	Search    string `form:"search" binding:"max=100"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=email district display_name created_at last_login"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// Filter converts the query into a repository filter.
func (q UserListQuery) Filter() models.UserFilter {
	filter := models.UserFilter{
		Active:    q.Active,
		Search:    strings.TrimSpace(q.Search),
		Page:      q.Page,
		PageSize:  q.PageSize,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}
	if q.Role != "" {
		role := models.UserRole(q.Role)
		filter.Role = &role
	}
	if district := strings.TrimSpace(q.District); district != "" {
		filter.District = &district
	}
	return filter
}
