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

type activityTypeRepository interface {
	List(ctx context.Context) ([]models.ActivityType, error)
	FindByID(ctx context.Context, id int64) (*models.ActivityType, error)
	Create(ctx context.Context, t *models.ActivityType) error
	Update(ctx context.Context, t *models.ActivityType) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// ActivityTypeService manages activity categories.
type ActivityTypeService struct {
	repo      activityTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityTypeService creates an instance of ActivityTypeService.
func NewActivityTypeService(repo activityTypeRepository, validate *validator.Validate, logger *zap.Logger) *ActivityTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns every non-deleted type.
func (s *ActivityTypeService) List(ctx context.Context) ([]models.ActivityType, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list activity types")
	}
	return types, nil
}

// Get returns a type by ID.
func (s *ActivityTypeService) Get(ctx context.Context, id int64) (*models.ActivityType, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity type not found")
		}
		return nil, internalError(err, "failed to load activity type")
	}
	return t, nil
}

// Create adds a type; labels are unique.
func (s *ActivityTypeService) Create(ctx context.Context, req dto.ActivityTypeRequest) (*models.ActivityType, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid activity type payload")
	}
	t := &models.ActivityType{Label: req.Label}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, internalError(err, "failed to create activity type")
	}
	return t, nil
}

// Update renames a type.
func (s *ActivityTypeService) Update(ctx context.Context, id int64, req dto.ActivityTypeRequest) (*models.ActivityType, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid activity type payload")
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Label = req.Label
	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity type not found")
		}
		return nil, internalError(err, "failed to update activity type")
	}
	return t, nil
}

// Delete soft-deletes a type. Existing activities keep their reference.
func (s *ActivityTypeService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity type not found")
		}
		return internalError(err, "failed to delete activity type")
	}
	return nil
}
