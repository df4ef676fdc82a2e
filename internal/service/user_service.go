package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gwd-progress-api/internal/dto"
	"github.com/noah-isme/gwd-progress-api/internal/identity"
	"github.com/noah-isme/gwd-progress-api/internal/models"
	"github.com/noah-isme/gwd-progress-api/internal/schema"
	appErrors "github.com/noah-isme/gwd-progress-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFlags(ctx context.Context, id string, isActive, canEdit *bool) (*models.User, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles account provisioning and flag management.
type UserService struct {
	repo      userRepository
	identity  identity.Provider
	audit     auditWriter
	registry  *schema.Registry
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, provider identity.Provider, audit auditWriter, registry *schema.Registry, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if registry == nil {
		registry = schema.Default()
	}
	return &UserService{repo: repo, identity: provider, audit: audit, registry: registry, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter, actor models.Actor) ([]models.User, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "user management is restricted to administrators")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID. Non-admins may only read themselves.
func (s *UserService) Get(ctx context.Context, id string, actor models.Actor) (*models.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "user management is restricted to administrators")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeError(err, "failed to load user")
	}
	return user, nil
}

// Create registers the identity and the user record. Duplicate emails yield Conflict.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor models.Actor, meta dto.RequestMeta) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "user management is restricted to administrators")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid create user payload")
	}
	return s.create(ctx, req, actor.UserID, meta)
}

func (s *UserService) create(ctx context.Context, req dto.CreateUserRequest, actorID string, meta dto.RequestMeta) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var district *string
	switch req.Role {
	case models.RoleDistrictUser:
		if !s.registry.HasDistrict(req.District) {
			return nil, appErrors.Validationf("district user requires a known district, got %q", req.District)
		}
		d := req.District
		district = &d
	case models.RoleStateAdmin:
		if req.District != "" {
			return nil, appErrors.Validationf("state administrators are not bound to a district")
		}
	default:
		return nil, appErrors.Validationf("unknown role %q", req.Role)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(err, "failed to check email uniqueness")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = email
	}
	uid, err := s.identity.CreateUser(ctx, email, req.Password, displayName)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, storeError(err, "failed to register identity")
	}

	user := &models.User{
		ID:          uid,
		Email:       email,
		DisplayName: displayName,
		District:    district,
		Role:        req.Role,
		IsActive:    true,
		CanEdit:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if delErr := s.identity.DeleteUser(ctx, uid); delErr != nil {
			s.logger.Warn("identity left without user record", zap.String("uid", uid), zap.String("email", email), zap.Error(delErr))
		}
		return nil, storeError(err, "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role, "district": user.District})
	s.recordAudit(ctx, actorID, models.AuditActionUserCreate, user.ID, nil, newPayload, meta)
	return user, nil
}

// UpdateFlags sets is_active and/or can_edit. Repeating the same update is a no-op.
func (s *UserService) UpdateFlags(ctx context.Context, id string, req dto.UpdateUserFlagsRequest, actor models.Actor, meta dto.RequestMeta) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "user management is restricted to administrators")
	}
	if req.IsActive == nil && req.CanEdit == nil {
		return nil, appErrors.Validationf("isActive or canEdit is required")
	}

	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeError(err, "failed to load user")
	}

	user, err := s.repo.UpdateFlags(ctx, id, req.IsActive, req.CanEdit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeError(err, "failed to update user")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"is_active": before.IsActive, "can_edit": before.CanEdit})
	newPayload, _ := json.Marshal(map[string]interface{}{"is_active": user.IsActive, "can_edit": user.CanEdit})
	s.recordAudit(ctx, actor.UserID, models.AuditActionUserUpdate, user.ID, oldPayload, newPayload, meta)
	return user, nil
}

// Bootstrap creates the first state administrator when none exists. It reports whether one was created.
func (s *UserService) Bootstrap(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	count, err := s.repo.CountByRole(ctx, models.RoleStateAdmin)
	if err != nil {
		return false, storeError(err, "failed to count administrators")
	}
	if count > 0 {
		return false, nil
	}
	req := dto.CreateUserRequest{Email: email, Password: password, DisplayName: "State Administrator", Role: models.RoleStateAdmin}
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Invalid(err, "invalid bootstrap administrator")
	}
	if _, err := s.create(ctx, req, "", dto.RequestMeta{}); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap administrator created", zap.String("email", email))
	return true, nil
}

func (s *UserService) recordAudit(ctx context.Context, actorID, action, userID string, oldValues, newValues []byte, meta dto.RequestMeta) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}
