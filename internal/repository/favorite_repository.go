package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

// FavoriteRepository provides database access for bookmarked activities.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository creates a new instance of FavoriteRepository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

type favoriteRow struct {
	FavoriteCreatedAt time.Time `db:"favorite_created_at"`
	activityRow
}

// ListByUser returns the user's favorites on published, non-deleted activities,
// newest first.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error) {
	const query = `SELECT f.created_at AS favorite_created_at, a.id, a.name, a.description, a.thumbnail, a.duration, a.stress_level, a.status, a.type_id, a.publication_date, a.deleted_at, a.created_at, a.updated_at, t.label AS type_label
FROM favorites f
JOIN activities a ON a.id = f.activity_id
JOIN activity_types t ON t.id = a.type_id
WHERE f.user_id = $1 AND a.status = $2 AND a.deleted_at IS NULL
ORDER BY f.created_at DESC`
	var rows []favoriteRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, models.StatusPublished); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	favorites := make([]models.Favorite, 0, len(rows))
	for _, row := range rows {
		activity := row.toModel()
		favorites = append(favorites, models.Favorite{
			UserID:     userID,
			ActivityID: activity.ID,
			CreatedAt:  row.FavoriteCreatedAt,
			Activity:   &activity,
		})
	}
	return favorites, nil
}

// Add records a favorite; adding twice is a no-op.
func (r *FavoriteRepository) Add(ctx context.Context, userID, activityID int64) error {
	const query = `INSERT INTO favorites (user_id, activity_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, activity_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, activityID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add favorite: %w", MapError(err))
	}
	return nil
}

// Remove deletes a favorite. Missing favorites return sql.ErrNoRows.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, activityID int64) error {
	const query = `DELETE FROM favorites WHERE user_id = $1 AND activity_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, activityID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return expectAffected(res)
}
