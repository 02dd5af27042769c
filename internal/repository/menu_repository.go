package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

const menuColumns = `id, label, page_ids, deleted_at, created_at, updated_at`

type menuRow struct {
	models.InformationMenu
	PageIDs pq.Int64Array `db:"page_ids"`
}

func (row menuRow) toModel() models.InformationMenu {
	menu := row.InformationMenu
	menu.PageIDs = []int64(row.PageIDs)
	if menu.PageIDs == nil {
		menu.PageIDs = []int64{}
	}
	return menu
}

// MenuRepository provides database access for information menus.
type MenuRepository struct {
	db *sqlx.DB
}

// NewMenuRepository creates a new instance of MenuRepository.
func NewMenuRepository(db *sqlx.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// List returns non-deleted menus.
func (r *MenuRepository) List(ctx context.Context) ([]models.InformationMenu, error) {
	const query = `SELECT ` + menuColumns + ` FROM information_menus WHERE deleted_at IS NULL ORDER BY id ASC`
	var rows []menuRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	menus := make([]models.InformationMenu, 0, len(rows))
	for _, row := range rows {
		menus = append(menus, row.toModel())
	}
	return menus, nil
}

// FindByID returns a non-deleted menu.
func (r *MenuRepository) FindByID(ctx context.Context, id int64) (*models.InformationMenu, error) {
	const query = `SELECT ` + menuColumns + ` FROM information_menus WHERE id = $1 AND deleted_at IS NULL LIMIT 1`
	var row menuRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find menu: %w", err)
	}
	menu := row.toModel()
	return &menu, nil
}

// FindByLabel returns a non-deleted menu by exact label.
func (r *MenuRepository) FindByLabel(ctx context.Context, label string) (*models.InformationMenu, error) {
	const query = `SELECT ` + menuColumns + ` FROM information_menus WHERE label = $1 AND deleted_at IS NULL LIMIT 1`
	var row menuRow
	if err := r.db.GetContext(ctx, &row, query, label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find menu by label: %w", err)
	}
	menu := row.toModel()
	return &menu, nil
}

// Create inserts a menu.
func (r *MenuRepository) Create(ctx context.Context, m *models.InformationMenu) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.PageIDs == nil {
		m.PageIDs = []int64{}
	}
	const query = `INSERT INTO information_menus (label, page_ids, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &m.ID, query, m.Label, pq.Array(m.PageIDs), m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("create menu: %w", MapError(err))
	}
	return nil
}

// Update writes label and page order.
func (r *MenuRepository) Update(ctx context.Context, m *models.InformationMenu) error {
	m.UpdatedAt = time.Now().UTC()
	if m.PageIDs == nil {
		m.PageIDs = []int64{}
	}
	const query = `UPDATE information_menus SET label = $2, page_ids = $3, updated_at = $4 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, m.ID, m.Label, pq.Array(m.PageIDs), m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	return expectAffected(res)
}

// SoftDelete stamps the delete marker.
func (r *MenuRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE information_menus SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	return expectAffected(res)
}
