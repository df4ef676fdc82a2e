// Package identity delegates credential storage and verification away from the
// user store. Callers only ever see provider-issued uids.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Provider errors.
var (
	ErrEmailExists        = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrUnknownUser        = errors.New("identity: unknown user")
)

// Provider creates and authenticates identities.
type Provider interface {
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	VerifyPassword(ctx context.Context, uid, password string) error
	UpdatePassword(ctx context.Context, uid, password string) error
	DeleteUser(ctx context.Context, uid string) error
}

const uniqueViolation = "23505"

type identityRow struct {
	UID          string `db:"uid"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

// LocalProvider keeps bcrypt hashes in the identities table.
type LocalProvider struct {
	db   *sqlx.DB
	cost int
}

// NewLocalProvider constructs a provider backed by db.
func NewLocalProvider(db *sqlx.DB) *LocalProvider {
	return &LocalProvider{db: db, cost: bcrypt.DefaultCost}
}

// CreateUser registers a new identity and returns its uid.
func (p *LocalProvider) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	uid := uuid.NewString()
	const query = `INSERT INTO identities (uid, email, password_hash, display_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := p.db.ExecContext(ctx, query, uid, normalizeEmail(email), string(hash), displayName, now, now); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("create identity: %w", err)
	}
	return uid, nil
}

// Authenticate verifies credentials and returns the uid.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	const query = `SELECT uid, email, password_hash FROM identities WHERE email = $1 LIMIT 1`
	var row identityRow
	if err := p.db.GetContext(ctx, &row, query, normalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return row.UID, nil
}

// VerifyPassword checks password against the stored hash of uid.
func (p *LocalProvider) VerifyPassword(ctx context.Context, uid, password string) error {
	const query = `SELECT uid, email, password_hash FROM identities WHERE uid = $1 LIMIT 1`
	var row identityRow
	if err := p.db.GetContext(ctx, &row, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownUser
		}
		return fmt.Errorf("find identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// UpdatePassword replaces the stored hash of uid.
func (p *LocalProvider) UpdatePassword(ctx context.Context, uid, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	const query = `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE uid = $1`
	res, err := p.db.ExecContext(ctx, query, uid, string(hash), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update identity password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUnknownUser
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeleteUser removes the identity of uid. Deleting an unknown uid is not an error.
func (p *LocalProvider) DeleteUser(ctx context.Context, uid string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM identities WHERE uid = $1`, uid); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
