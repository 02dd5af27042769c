package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

const activityTypeColumns = `id, label, deleted_at, created_at, updated_at`

// ActivityTypeRepository provides database access for activity types.
type ActivityTypeRepository struct {
	db *sqlx.DB
}

// NewActivityTypeRepository creates a new instance of ActivityTypeRepository.
func NewActivityTypeRepository(db *sqlx.DB) *ActivityTypeRepository {
	return &ActivityTypeRepository{db: db}
}

// List returns non-deleted activity types ordered by label.
func (r *ActivityTypeRepository) List(ctx context.Context) ([]models.ActivityType, error) {
	const query = `SELECT ` + activityTypeColumns + ` FROM activity_types WHERE deleted_at IS NULL ORDER BY label ASC`
	var types []models.ActivityType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list activity types: %w", err)
	}
	return types, nil
}

// FindByID returns a non-deleted activity type.
func (r *ActivityTypeRepository) FindByID(ctx context.Context, id int64) (*models.ActivityType, error) {
	const query = `SELECT ` + activityTypeColumns + ` FROM activity_types WHERE id = $1 AND deleted_at IS NULL LIMIT 1`
	var t models.ActivityType
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find activity type: %w", err)
	}
	return &t, nil
}

// Create inserts an activity type.
func (r *ActivityTypeRepository) Create(ctx context.Context, t *models.ActivityType) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	const query = `INSERT INTO activity_types (label, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.GetContext(ctx, &t.ID, query, t.Label, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("create activity type: %w", MapError(err))
	}
	return nil
}

// Update renames an activity type.
func (r *ActivityTypeRepository) Update(ctx context.Context, t *models.ActivityType) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activity_types SET label = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, t.ID, t.Label, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update activity type: %w", MapError(err))
	}
	return expectAffected(res)
}

// SoftDelete stamps the delete marker.
func (r *ActivityTypeRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE activity_types SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("delete activity type: %w", err)
	}
	return expectAffected(res)
}
