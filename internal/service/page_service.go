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

type pageRepository interface {
	List(ctx context.Context, status models.PublicationStatus) ([]models.InformationPage, error)
	ListByIDs(ctx context.Context, ids []int64, status models.PublicationStatus) ([]models.InformationPage, error)
	FindByID(ctx context.Context, id int64) (*models.InformationPage, error)
	Create(ctx context.Context, p *models.InformationPage) error
	Update(ctx context.Context, p *models.InformationPage) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// PageService manages information pages.
type PageService struct {
	repo      pageRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPageService creates an instance of PageService.
func NewPageService(repo pageRepository, validate *validator.Validate, logger *zap.Logger) *PageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PageService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every non-deleted page regardless of status.
func (s *PageService) List(ctx context.Context) ([]models.InformationPage, error) {
	pages, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, internalError(err, "failed to list pages")
	}
	return pages, nil
}

// ListPublished returns published pages only.
func (s *PageService) ListPublished(ctx context.Context) ([]models.InformationPage, error) {
	pages, err := s.repo.List(ctx, models.StatusPublished)
	if err != nil {
		return nil, internalError(err, "failed to list pages")
	}
	return pages, nil
}

// Get returns a page. Drafts and hidden pages are only visible to editors.
func (s *PageService) Get(ctx context.Context, id int64, includeUnpublished bool) (*models.InformationPage, error) {
	page, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.Status != models.StatusPublished && !includeUnpublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
	}
	return page, nil
}

// Create adds a page.
func (s *PageService) Create(ctx context.Context, req dto.CreatePageRequest, thumbnail *string) (*models.InformationPage, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create page payload")
	}
	page := &models.InformationPage{
		Title:     req.Title,
		Content:   req.Content,
		Thumbnail: thumbnail,
		Status:    req.Status,
	}
	if page.Status == "" {
		page.Status = models.StatusDraft
	}
	s.stampPublication(page)

	if err := s.repo.Create(ctx, page); err != nil {
		return nil, internalError(err, "failed to create page")
	}
	return page, nil
}

// Update applies a partial update.
func (s *PageService) Update(ctx context.Context, id int64, req dto.UpdatePageRequest, thumbnail *string) (*models.InformationPage, error) {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
		}
		req.Title = &title
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update page payload")
	}

	page, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		page.Title = *req.Title
	}
	if req.Content != nil {
		page.Content = *req.Content
	}
	if req.Status != nil {
		page.Status = *req.Status
	}
	if thumbnail != nil {
		page.Thumbnail = thumbnail
	}
	s.stampPublication(page)

	if err := s.repo.Update(ctx, page); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, internalError(err, "failed to update page")
	}
	return page, nil
}

// Delete soft-deletes a page.
func (s *PageService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return internalError(err, "failed to delete page")
	}
	return nil
}

// stampPublication sets published_at the first time a page is published.
func (s *PageService) stampPublication(page *models.InformationPage) {
	if page.Status == models.StatusPublished && page.PublishedAt == nil {
		now := s.now()
		page.PublishedAt = &now
	}
}

func (s *PageService) load(ctx context.Context, id int64) (*models.InformationPage, error) {
	page, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, internalError(err, "failed to load page")
	}
	return page, nil
}
