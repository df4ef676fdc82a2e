package models

// Actor is the authenticated caller of a single request. Services receive it
// explicitly instead of reading ambient session state.
type Actor struct {
	UserID   string
	Email    string
	Role     UserRole
	District string
	IsActive bool
	CanEdit  bool
}

// ActorFromClaims builds the request actor from verified token claims.
func ActorFromClaims(c *JWTClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{
		UserID:   c.UserID,
		Email:    c.Email,
		Role:     c.Role,
		District: c.District,
		IsActive: c.IsActive,
		CanEdit:  c.CanEdit,
	}
}

// IsAdmin reports whether the actor holds the state administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleStateAdmin
}
