package identity

import (
	"context"

	"github.com/google/uuid"
)

// DemoProvider accepts every registration and rejects every password login.
// It backs the degraded mode where nothing is persisted.
type DemoProvider struct{}

// CreateUser returns a fresh uid without storing anything.
func (DemoProvider) CreateUser(context.Context, string, string, string) (string, error) {
	return uuid.NewString(), nil
}

// Authenticate always fails; demo sessions use the demo login instead.
func (DemoProvider) Authenticate(context.Context, string, string) (string, error) {
	return "", ErrInvalidCredentials
}

// VerifyPassword always fails.
func (DemoProvider) VerifyPassword(context.Context, string, string) error {
	return ErrInvalidCredentials
}

// UpdatePassword is a no-op.
func (DemoProvider) UpdatePassword(context.Context, string, string) error {
	return nil
}

// DeleteUser is a no-op.
func (DemoProvider) DeleteUser(context.Context, string) error {
	return nil
}
