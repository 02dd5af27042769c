package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

const roleColumns = `id, label, level, deleted_at, created_at, updated_at`

// RoleRepository provides database access for roles.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new instance of RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns roles matching the filter ordered by level.
func (r *RoleRepository) List(ctx context.Context, filter models.RoleFilter) ([]models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE 1=1`
	var conditions []string
	var args []interface{}

	switch filter.Status {
	case models.RoleStatusActive:
		conditions = append(conditions, "deleted_at IS NULL")
	case models.RoleStatusInactive:
		conditions = append(conditions, "deleted_at IS NOT NULL")
	}
	if filter.ExcludeLevel > 0 {
		conditions = append(conditions, fmt.Sprintf("level <> $%d", len(args)+1))
		args = append(args, filter.ExcludeLevel)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY level DESC, id ASC"

	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query, args...); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// FindByID returns a role by identifier, deleted or not.
func (r *RoleRepository) FindByID(ctx context.Context, id int64) (*models.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE id = $1 LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role by id: %w", err)
	}
	return &role, nil
}

// FindActiveByLabel returns the non-deleted role whose label matches case-insensitively.
func (r *RoleRepository) FindActiveByLabel(ctx context.Context, label string) (*models.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE LOWER(label) = LOWER($1) AND deleted_at IS NULL LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role by label: %w", err)
	}
	return &role, nil
}

// UsersByRole returns the credential-free projection of users referencing the given roles.
func (r *RoleRepository) UsersByRole(ctx context.Context, roleIDs []int64) ([]models.RoleUser, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, is_active, role_id FROM users WHERE role_id = ANY($1) AND deleted_at IS NULL ORDER BY id ASC`
	var users []models.RoleUser
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(roleIDs)); err != nil {
		return nil, fmt.Errorf("list role users: %w", err)
	}
	return users, nil
}

// Create inserts a new role and fills generated fields.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	const query = `INSERT INTO roles (label, level, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &role.ID, query, role.Label, role.Level, role.CreatedAt, role.UpdatedAt); err != nil {
		return fmt.Errorf("create role: %w", MapError(err))
	}
	return nil
}

// Update updates label and level.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	role.UpdatedAt = time.Now().UTC()
	const query = `UPDATE roles SET label = $2, level = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, role.ID, role.Label, role.Level, role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update role: %w", MapError(err))
	}
	return expectAffected(res)
}

// Restore clears the soft-delete marker. Users are left where they are.
func (r *RoleRepository) Restore(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE roles SET deleted_at = NULL, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("restore role: %w", err)
	}
	return expectAffected(res)
}

// DisableAndReassign moves every user of roleID to baseRoleID and then stamps
// roleID as deleted, in one transaction. The target row is locked first so
// concurrent assignments to it wait for the outcome.
func (r *RoleRepository) DisableAndReassign(ctx context.Context, roleID, baseRoleID int64, at time.Time) (reassigned int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin disable role tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID int64
	if err = tx.GetContext(ctx, &lockedID, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("lock role: %w", err)
	}

	var baseID int64
	if err = tx.GetContext(ctx, &baseID, `SELECT id FROM roles WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, baseRoleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrBaseRoleUnavailable
			return 0, err
		}
		return 0, fmt.Errorf("lock base role: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE users SET role_id = $2, updated_at = $3 WHERE role_id = $1`, roleID, baseRoleID, at)
	if err != nil {
		return 0, fmt.Errorf("reassign role users: %w", err)
	}
	if reassigned, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("count reassigned users: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE roles SET deleted_at = $2, updated_at = $2 WHERE id = $1`, roleID, at); err != nil {
		return 0, fmt.Errorf("mark role deleted: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit disable role tx: %w", err)
	}
	return reassigned, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
