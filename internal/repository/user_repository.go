package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gwd-progress-api/internal/models"
)

var userColumns = []string{
	"id", "email", "display_name", "district", "role", "is_active", "can_edit", "last_login", "created_at", "updated_at",
}

var userSortColumns = map[string]string{
	"email":        "email",
	"district":     "district",
	"display_name": "display_name",
	"created_at":   "created_at",
	"last_login":   "last_login",
}

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// UserRepository stores portal accounts. Credentials live with the identity provider.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks the address up case-insensitively; sql.ErrNoRows when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

func (r *UserRepository) findOne(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	query, args, err := builder().Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user lookup: %w", err)
	}
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	query, args, err := builder().Update("users").
		Set("last_login", ts).
		Set("updated_at", ts).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build last login update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// List pages through accounts matching filter and reports the unpaged total.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	where := squirrel.And{}
	if filter.Role != nil {
		where = append(where, squirrel.Eq{"role": string(*filter.Role)})
	}
	if filter.District != nil {
		where = append(where, squirrel.Eq{"district": *filter.District})
	}
	if filter.Active != nil {
		where = append(where, squirrel.Eq{"is_active": *filter.Active})
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + term + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"display_name": pattern},
		})
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxUserPageSize {
		size = defaultUserPageSize
	}

	list := builder().Select(userColumns...).From("users").
		OrderBy(userOrderBy(filter.SortBy, filter.SortOrder)).
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size))
	count := builder().Select("COUNT(*)").From("users")
	if len(where) > 0 {
		list = list.Where(where)
		count = count.Where(where)
	}

	query, args, err := list.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users: %w", err)
	}
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	query, args, err = count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

func userOrderBy(sortBy, order string) string {
	column, ok := userSortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	if strings.EqualFold(order, "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	query, args, err := builder().Select("COUNT(*)").From("users").Where(squirrel.Eq{"role": string(role)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count by role: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return total, nil
}

// Create inserts user under the id issued by the identity provider.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("create user: identity id is required")
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query, args, err := builder().Insert("users").
		Columns("id", "email", "display_name", "district", "role", "is_active", "can_edit", "created_at", "updated_at").
		Values(user.ID, strings.ToLower(user.Email), user.DisplayName, user.District, string(user.Role), user.IsActive, user.CanEdit, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create user: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateFlags writes whichever flags are non-nil and returns the stored row.
// Unknown ids yield sql.ErrNoRows.
func (r *UserRepository) UpdateFlags(ctx context.Context, id string, isActive, canEdit *bool) (*models.User, error) {
	q := builder().Update("users")
	if isActive != nil {
		q = q.Set("is_active", *isActive)
	}
	if canEdit != nil {
		q = q.Set("can_edit", *canEdit)
	}
	query, args, err := q.Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update user flags: %w", err)
	}
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update user flags: %w", err)
	}
	return &user, nil
}
