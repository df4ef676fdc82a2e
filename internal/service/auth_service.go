package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/identity"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	DemoEnabled       bool
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	identity  identity.Provider
	audit     auditWriter
	registry  *schema.Registry
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, provider identity.Provider, audit auditWriter, registry *schema.Registry, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if registry == nil {
		registry = schema.Default()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{repo: repo, identity: provider, audit: audit, registry: registry, validator: validate, logger: logger, config: config}
}

// DemoEnabled reports whether credential-less demo logins are accepted.
func (s *AuthService) DemoEnabled() bool {
	return s.config.DemoEnabled
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid login payload")
	}

	uid, err := s.identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUnknownUser) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, storeError(err, "failed to authenticate")
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, storeError(err, "failed to fetch user")
	}
	if !user.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	accessToken, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, issuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.recordAudit(ctx, user.ID, models.AuditActionLogin, []byte(`{"status":"success"}`), dto.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(user),
	}, nil
}

// DemoLogin issues a token for a synthetic account while the backend is unavailable.
func (s *AuthService) DemoLogin(ctx context.Context, req models.DemoLoginRequest) (*models.LoginResponse, error) {
	if !s.config.DemoEnabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "demo login is disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid demo login payload")
	}

	user := &models.User{
		ID:       "demo-" + uuid.NewString(),
		Role:     req.Role,
		IsActive: true,
		CanEdit:  true,
	}
	switch req.Role {
	case models.RoleDistrictUser:
		if !s.registry.HasDistrict(req.District) {
			return nil, appErrors.Validationf("unknown district %q", req.District)
		}
		district := req.District
		user.District = &district
		user.Email = strings.ToLower(strings.ReplaceAll(district, " ", ".")) + "@demo.local"
		user.DisplayName = district + " (demo)"
	default:
		user.Email = "admin@demo.local"
		user.DisplayName = "State Administrator (demo)"
	}

	accessToken, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Info("demo login", zap.String("role", string(user.Role)), zap.String("district", user.DistrictName()))

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(user),
		Demo:        true,
	}, nil
}

// Me returns the caller's profile. Demo accounts are answered from the token.
func (s *AuthService) Me(ctx context.Context, actor models.Actor) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if s.config.DemoEnabled {
				return &models.UserInfo{
					ID:       actor.UserID,
					Email:    actor.Email,
					Role:     actor.Role,
					District: actor.District,
					CanEdit:  actor.CanEdit,
				}, nil
			}
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeError(err, "failed to load user")
	}
	info := userInfo(user)
	return &info, nil
}

// ChangePassword changes the password of the calling user.
func (s *AuthService) ChangePassword(ctx context.Context, actor models.Actor, req models.ChangePasswordRequest, meta dto.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid change password payload")
	}

	if err := s.identity.VerifyPassword(ctx, actor.UserID, req.OldPassword); err != nil {
		switch {
		case errors.Is(err, identity.ErrUnknownUser):
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case errors.Is(err, identity.ErrInvalidCredentials):
			return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
		}
		return storeError(err, "failed to verify password")
	}

	if err := s.identity.UpdatePassword(ctx, actor.UserID, req.NewPassword); err != nil {
		if errors.Is(err, identity.ErrUnknownUser) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return storeError(err, "failed to update password")
	}

	s.recordAudit(ctx, actor.UserID, models.AuditActionPasswordChange, []byte(`{"status":"changed"}`), meta)
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		District: user.DistrictName(),
		CanEdit:  user.CanEdit,
		IsActive: user.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func (s *AuthService) recordAudit(ctx context.Context, userID, action string, payload []byte, meta dto.RequestMeta) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		District:    user.DistrictName(),
		CanEdit:     user.CanEdit,
	}
}
