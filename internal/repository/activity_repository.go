package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var activitySelectColumns = []string{
	"a.id", "a.name", "a.description", "a.thumbnail", "a.duration", "a.stress_level", "a.status",
	"a.type_id", "a.publication_date", "a.deleted_at", "a.created_at", "a.updated_at",
	"t.label AS type_label",
}

type activityRow struct {
	models.Activity
	TypeLabel string `db:"type_label"`
}

func (row activityRow) toModel() models.Activity {
	activity := row.Activity
	activity.Type = &models.ActivityType{ID: activity.TypeID, Label: row.TypeLabel}
	return activity
}

// ActivityRepository provides database access for activities.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func activitySelect() sq.SelectBuilder {
	return psql.Select(activitySelectColumns...).
		From("activities a").
		Join("activity_types t ON t.id = a.type_id")
}

func activityConditions(filter models.ActivityFilter) sq.And {
	where := sq.And{sq.Eq{"a.deleted_at": nil}}
	if filter.Status != "" {
		where = append(where, sq.Eq{"a.status": filter.Status})
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		where = append(where, sq.Or{sq.ILike{"a.name": pattern}, sq.ILike{"a.description": pattern}})
	}
	if filter.TypeID != nil {
		where = append(where, sq.Eq{"a.type_id": *filter.TypeID})
	}
	if filter.StressLevel != nil {
		where = append(where, sq.Eq{"a.stress_level": *filter.StressLevel})
	}
	return where
}

// List returns activities matching filter with total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	where := activityConditions(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	listQuery, args, err := activitySelect().
		Where(where).
		OrderBy("a.publication_date DESC NULLS LAST", "a.id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list activities query: %w", err)
	}

	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("activities a").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count activities query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	activities := make([]models.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toModel())
	}
	return activities, total, nil
}

// Latest returns the most recently published activities.
func (r *ActivityRepository) Latest(ctx context.Context, count int) ([]models.Activity, error) {
	query, args, err := activitySelect().
		Where(sq.Eq{"a.deleted_at": nil, "a.status": models.StatusPublished}).
		OrderBy("a.publication_date DESC NULLS LAST", "a.id DESC").
		Limit(uint64(count)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest activities query: %w", err)
	}

	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("latest activities: %w", err)
	}
	activities := make([]models.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toModel())
	}
	return activities, nil
}

// FindByID returns a non-deleted activity with its type.
func (r *ActivityRepository) FindByID(ctx context.Context, id int64) (*models.Activity, error) {
	query, args, err := activitySelect().Where(sq.Eq{"a.id": id, "a.deleted_at": nil}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find activity query: %w", err)
	}
	var row activityRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find activity: %w", err)
	}
	activity := row.toModel()
	return &activity, nil
}

// Create inserts an activity.
func (r *ActivityRepository) Create(ctx context.Context, a *models.Activity) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query, args, err := psql.Insert("activities").
		Columns("name", "description", "thumbnail", "duration", "stress_level", "status", "type_id", "publication_date", "created_at", "updated_at").
		Values(a.Name, a.Description, a.Thumbnail, a.Duration, a.StressLevel, a.Status, a.TypeID, a.PublicationDate, a.CreatedAt, a.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create activity query: %w", err)
	}
	if err := r.db.GetContext(ctx, &a.ID, query, args...); err != nil {
		return fmt.Errorf("create activity: %w", MapError(err))
	}
	return nil
}

// Update writes every mutable column.
func (r *ActivityRepository) Update(ctx context.Context, a *models.Activity) error {
	a.UpdatedAt = time.Now().UTC()

	query, args, err := psql.Update("activities").
		SetMap(map[string]interface{}{
			"name":             a.Name,
			"description":      a.Description,
			"thumbnail":        a.Thumbnail,
			"duration":         a.Duration,
			"stress_level":     a.StressLevel,
			"status":           a.Status,
			"type_id":          a.TypeID,
			"publication_date": a.PublicationDate,
			"updated_at":       a.UpdatedAt,
		}).
		Where(sq.Eq{"id": a.ID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update activity query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update activity: %w", MapError(err))
	}
	return expectAffected(res)
}

// SoftDelete stamps the delete marker.
func (r *ActivityRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query, args, err := psql.Update("activities").
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete activity query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return expectAffected(res)
}
