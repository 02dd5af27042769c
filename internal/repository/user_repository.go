package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

const userSelect = `SELECT u.id, u.email, u.name, u.password_hash, u.role_id, u.is_active, u.reset_code, u.reset_code_expires_at, u.deleted_at, u.created_at, u.updated_at, r.label AS role_label, r.level AS role_level FROM users u JOIN roles r ON r.id = u.role_id`

type userRow struct {
	models.User
	RoleLabel string `db:"role_label"`
	RoleLevel int    `db:"role_level"`
}

func (row userRow) toModel() models.User {
	user := row.User
	user.Role = &models.RoleSummary{ID: user.RoleID, Label: row.RoleLabel, Level: row.RoleLevel}
	return user
}

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) findOne(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, userSelect+" WHERE "+where+" LIMIT 1", args...); err != nil {
		return nil, err
	}
	user := row.toModel()
	return &user, nil
}

// FindByID returns a non-deleted user with its role.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := r.findOne(ctx, "u.id = $1 AND u.deleted_at IS NULL", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// FindByEmail returns a non-deleted user by email address, ignoring case.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.findOne(ctx, "LOWER(u.email) = LOWER($1) AND u.deleted_at IS NULL", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindByResetCode returns the user holding code when it has not expired at now.
func (r *UserRepository) FindByResetCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	user, err := r.findOne(ctx, "u.reset_code = $1 AND u.reset_code_expires_at > $2 AND u.deleted_at IS NULL", code, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by reset code: %w", err)
	}
	return user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users u JOIN roles r ON r.id = u.role_id WHERE u.deleted_at IS NULL`
	var conditions []string
	var args []interface{}

	switch filter.Status {
	case models.UserStatusActive:
		conditions = append(conditions, "u.is_active = TRUE")
	case models.UserStatusInactive:
		conditions = append(conditions, "u.is_active = FALSE")
	}
	if filter.RoleID != nil {
		conditions = append(conditions, fmt.Sprintf("u.role_id = $%d", len(args)+1))
		args = append(args, *filter.RoleID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.email) LIKE $%d OR LOWER(u.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"email":      "u.email",
		"name":       "u.name",
		"created_at": "u.created_at",
		"updated_at": "u.updated_at",
		"role":       "r.level",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "u.created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT u.id, u.email, u.name, u.password_hash, u.role_id, u.is_active, u.reset_code, u.reset_code_expires_at, u.deleted_at, u.created_at, u.updated_at, r.label AS role_label, r.level AS role_level %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, column, sortOrder, pageSize, offset)

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, total, nil
}

// lockActiveRole holds a share lock on a non-deleted role for the rest of tx,
// so a concurrent role disable cannot strand the user being written.
func lockActiveRole(ctx context.Context, tx *sqlx.Tx, roleID int64) error {
	var id int64
	if err := tx.GetContext(ctx, &id, `SELECT id FROM roles WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, roleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoleUnavailable
		}
		return fmt.Errorf("lock role: %w", err)
	}
	return nil
}

// Create inserts a new user on an active role.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (err error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockActiveRole(ctx, tx, user.RoleID); err != nil {
		return err
	}

	const query = `INSERT INTO users (email, name, password_hash, role_id, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err = tx.GetContext(ctx, &user.ID, query, user.Email, user.Name, user.PasswordHash, user.RoleID, user.IsActive, user.CreatedAt, user.UpdatedAt); err != nil {
		return fmt.Errorf("create user: %w", MapError(err))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create user tx: %w", err)
	}
	return nil
}

// Update writes the mutable profile fields, keeping the role assignment valid.
func (r *UserRepository) Update(ctx context.Context, user *models.User) (err error) {
	user.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update user tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockActiveRole(ctx, tx, user.RoleID); err != nil {
		return err
	}

	const query = `UPDATE users SET email = $2, name = $3, password_hash = $4, role_id = $5, is_active = $6, updated_at = $7 WHERE id = $1 AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash, user.RoleID, user.IsActive, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", MapError(err))
	}
	if err = expectAffected(res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update user tx: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res)
}

// SetActive toggles the active flag only.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool, updatedAt time.Time) error {
	const query = `UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, active, updatedAt)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return expectAffected(res)
}

// Anonymize overwrites personal fields of an inactive user with the sentinel
// and stamps the delete marker.
func (r *UserRepository) Anonymize(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE users SET name = $2, email = $3, password_hash = $2, reset_code = NULL, reset_code_expires_at = NULL, deleted_at = $4, updated_at = $4 WHERE id = $1 AND is_active = FALSE AND deleted_at IS NULL`
	email := fmt.Sprintf("%s#%d", models.DeletedUserSentinel, id)
	res, err := r.db.ExecContext(ctx, query, id, models.DeletedUserSentinel, email, at)
	if err != nil {
		return fmt.Errorf("anonymize user: %w", err)
	}
	return expectAffected(res)
}

// SetResetCode stores a reset code and its expiry.
func (r *UserRepository) SetResetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	const query = `UPDATE users SET reset_code = $2, reset_code_expires_at = $3, updated_at = $4 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, code, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	return expectAffected(res)
}

// ResetCodeInUse reports whether another account holds code unexpired.
func (r *UserRepository) ResetCodeInUse(ctx context.Context, code string, now time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE reset_code = $1 AND reset_code_expires_at > $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code, now); err != nil {
		return false, fmt.Errorf("check reset code: %w", err)
	}
	return exists, nil
}

// ConsumeResetCode replaces the password and clears the code, only while the
// code is still the one stored and unexpired. A lost race returns sql.ErrNoRows.
func (r *UserRepository) ConsumeResetCode(ctx context.Context, id int64, code, passwordHash string, now time.Time) error {
	const query = `UPDATE users SET password_hash = $3, reset_code = NULL, reset_code_expires_at = NULL, updated_at = $4 WHERE id = $1 AND reset_code = $2 AND reset_code_expires_at > $4 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, code, passwordHash, now)
	if err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	return expectAffected(res)
}
