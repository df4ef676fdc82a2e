package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleDistrictUser UserRole = "district_user"
	RoleStateAdmin   UserRole = "state_admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleDistrictUser || r == RoleStateAdmin
}

// User represents an application user stored in the users table. The id is
// issued by the identity provider.
type User struct {
	ID          string     `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	DisplayName string     `db:"display_name" json:"display_name"`
	District    *string    `db:"district" json:"district,omitempty"`
	Role        UserRole   `db:"role" json:"role"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CanEdit     bool       `db:"can_edit" json:"can_edit"`
	LastLogin   *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// DistrictName returns the district or an empty string for state users.
func (u *User) DistrictName() string {
	if u.District == nil {
		return ""
	}
	return *u.District
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	District  *string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
