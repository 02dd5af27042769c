package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/dto"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

type menuRepository interface {
	List(ctx context.Context) ([]models.InformationMenu, error)
	FindByID(ctx context.Context, id int64) (*models.InformationMenu, error)
	Create(ctx context.Context, m *models.InformationMenu) error
	Update(ctx context.Context, m *models.InformationMenu) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

type pageLister interface {
	ListByIDs(ctx context.Context, ids []int64, status models.PublicationStatus) ([]models.InformationPage, error)
}

// MenuService manages information menus.
type MenuService struct {
	repo      menuRepository
	pages     pageLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMenuService creates an instance of MenuService.
func NewMenuService(repo menuRepository, pages pageLister, validate *validator.Validate, logger *zap.Logger) *MenuService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MenuService{repo: repo, pages: pages, validator: validate, logger: logger}
}

// List returns every non-deleted menu without resolving pages.
func (s *MenuService) List(ctx context.Context) ([]models.InformationMenu, error) {
	menus, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list menus")
	}
	return menus, nil
}

// Get returns a menu with its published pages in menu order.
func (s *MenuService) Get(ctx context.Context, id int64) (*models.InformationMenu, error) {
	menu, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByIDs(ctx, menu.PageIDs, models.StatusPublished)
	if err != nil {
		return nil, internalError(err, "failed to resolve menu pages")
	}
	menu.Pages = orderPages(menu.PageIDs, pages)
	return menu, nil
}

// Create adds a menu. Every referenced page must exist.
func (s *MenuService) Create(ctx context.Context, req dto.MenuRequest) (*models.InformationMenu, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid menu payload")
	}
	ids, err := s.checkPages(ctx, req.PageIDs)
	if err != nil {
		return nil, err
	}
	menu := &models.InformationMenu{Label: req.Label, PageIDs: ids}
	if err := s.repo.Create(ctx, menu); err != nil {
		return nil, internalError(err, "failed to create menu")
	}
	return menu, nil
}

// Update replaces label and page list.
func (s *MenuService) Update(ctx context.Context, id int64, req dto.MenuRequest) (*models.InformationMenu, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid menu payload")
	}
	menu, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.checkPages(ctx, req.PageIDs)
	if err != nil {
		return nil, err
	}
	menu.Label = req.Label
	menu.PageIDs = ids
	if err := s.repo.Update(ctx, menu); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "menu not found")
		}
		return nil, internalError(err, "failed to update menu")
	}
	return menu, nil
}

// Delete soft-deletes a menu.
func (s *MenuService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "menu not found")
		}
		return internalError(err, "failed to delete menu")
	}
	return nil
}

// checkPages drops duplicates and rejects ids that do not name a live page.
func (s *MenuService) checkPages(ctx context.Context, ids []int64) ([]int64, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return unique, nil
	}
	pages, err := s.pages.ListByIDs(ctx, unique, "")
	if err != nil {
		return nil, internalError(err, "failed to check menu pages")
	}
	if len(pages) != len(unique) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "menu references unknown pages")
	}
	return unique, nil
}

func (s *MenuService) load(ctx context.Context, id int64) (*models.InformationMenu, error) {
	menu, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "menu not found")
		}
		return nil, internalError(err, "failed to load menu")
	}
	return menu, nil
}

func orderPages(ids []int64, pages []models.InformationPage) []models.InformationPage {
	byID := make(map[int64]models.InformationPage, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
	}
	ordered := make([]models.InformationPage, 0, len(pages))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
