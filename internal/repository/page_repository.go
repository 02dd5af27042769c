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

const pageColumns = `id, title, content, thumbnail, status, published_at, deleted_at, created_at, updated_at`

// PageRepository provides database access for information pages.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new instance of PageRepository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// List returns non-deleted pages, optionally restricted to one status.
func (r *PageRepository) List(ctx context.Context, status models.PublicationStatus) ([]models.InformationPage, error) {
	query := `SELECT ` + pageColumns + ` FROM information_pages WHERE deleted_at IS NULL`
	var args []interface{}
	if status != "" {
		query += " AND status = $1"
		args = append(args, status)
	}
	query += " ORDER BY published_at DESC NULLS LAST, id DESC"

	var pages []models.InformationPage
	if err := r.db.SelectContext(ctx, &pages, query, args...); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// ListByIDs returns the non-deleted pages among ids, optionally restricted to one status.
func (r *PageRepository) ListByIDs(ctx context.Context, ids []int64, status models.PublicationStatus) ([]models.InformationPage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	conditions := []string{"deleted_at IS NULL", "id = ANY($1)"}
	args := []interface{}{pq.Array(ids)}
	if status != "" {
		conditions = append(conditions, "status = $2")
		args = append(args, status)
	}
	query := `SELECT ` + pageColumns + ` FROM information_pages WHERE ` + strings.Join(conditions, " AND ")

	var pages []models.InformationPage
	if err := r.db.SelectContext(ctx, &pages, query, args...); err != nil {
		return nil, fmt.Errorf("list pages by ids: %w", err)
	}
	return pages, nil
}

// FindByID returns a non-deleted page.
func (r *PageRepository) FindByID(ctx context.Context, id int64) (*models.InformationPage, error) {
	const query = `SELECT ` + pageColumns + ` FROM information_pages WHERE id = $1 AND deleted_at IS NULL LIMIT 1`
	var page models.InformationPage
	if err := r.db.GetContext(ctx, &page, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find page: %w", err)
	}
	return &page, nil
}

// Create inserts a page.
func (r *PageRepository) Create(ctx context.Context, p *models.InformationPage) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	const query = `INSERT INTO information_pages (title, content, thumbnail, status, published_at, created_at, updated_at) VALUES (:title, :content, :thumbnail, :status, :published_at, :created_at, :updated_at) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("create page: %w", MapError(err))
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ID); err != nil {
			return fmt.Errorf("scan page id: %w", err)
		}
	}
	return rows.Err()
}

// Update writes every mutable column.
func (r *PageRepository) Update(ctx context.Context, p *models.InformationPage) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE information_pages SET title = :title, content = :content, thumbnail = :thumbnail, status = :status, published_at = :published_at, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("update page: %w", MapError(err))
	}
	return expectAffected(res)
}

// SoftDelete stamps the delete marker.
func (r *PageRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE information_pages SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return expectAffected(res)
}
