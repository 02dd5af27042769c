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

const (
	defaultLatestActivities = 5
	maxLatestActivities     = 50
)

type activityRepository interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
	Latest(ctx context.Context, count int) ([]models.Activity, error)
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
	Create(ctx context.Context, a *models.Activity) error
	Update(ctx context.Context, a *models.Activity) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

type activityTypeLookup interface {
	FindByID(ctx context.Context, id int64) (*models.ActivityType, error)
}

// ActivityService manages the relaxation activity catalogue.
type ActivityService struct {
	repo      activityRepository
	types     activityTypeLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewActivityService creates an instance of ActivityService.
func NewActivityService(repo activityRepository, types activityTypeLookup, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{repo: repo, types: types, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List searches the catalogue. Without an explicit status only published activities are returned.
func (s *ActivityService) List(ctx context.Context, query dto.ActivityQuery) ([]models.Activity, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid activity query")
	}
	status := models.PublicationStatus(strings.ToUpper(strings.TrimSpace(query.Status)))
	if status == "" {
		status = models.StatusPublished
	}
	if !status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be DRAFT, HIDDEN or PUBLISHED")
	}

	filter := models.ActivityFilter{
		Status:      status,
		Query:       strings.TrimSpace(query.Query),
		TypeID:      query.TypeID,
		StressLevel: query.StressLevel,
		Page:        query.Page,
		PageSize:    query.Limit,
	}
	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list activities")
	}
	return activities, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Latest returns the most recently published activities.
func (s *ActivityService) Latest(ctx context.Context, count int) ([]models.Activity, error) {
	if count <= 0 {
		count = defaultLatestActivities
	}
	if count > maxLatestActivities {
		count = maxLatestActivities
	}
	activities, err := s.repo.Latest(ctx, count)
	if err != nil {
		return nil, internalError(err, "failed to list latest activities")
	}
	return activities, nil
}

// Get returns an activity. Unpublished activities are only visible to editors.
func (s *ActivityService) Get(ctx context.Context, id int64, includeUnpublished bool) (*models.Activity, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity.Status != models.StatusPublished && !includeUnpublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	return activity, nil
}

// Create adds an activity. thumbnail is the storage key of an uploaded image, if any.
func (s *ActivityService) Create(ctx context.Context, req dto.CreateActivityRequest, thumbnail *string) (*models.Activity, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create activity payload")
	}

	activityType, err := s.activeType(ctx, req.TypeID)
	if err != nil {
		return nil, err
	}

	activity := &models.Activity{
		Name:            req.Name,
		Description:     req.Description,
		Thumbnail:       thumbnail,
		Duration:        req.Duration,
		StressLevel:     req.StressLevel,
		Status:          req.Status,
		TypeID:          activityType.ID,
		PublicationDate: req.PublicationDate,
	}
	if activity.Status == "" {
		activity.Status = models.StatusDraft
	}
	s.stampPublication(activity)

	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, internalError(err, "failed to create activity")
	}
	activity.Type = activityType
	return activity, nil
}

// Update applies a partial update. A non-nil thumbnail replaces the stored one.
func (s *ActivityService) Update(ctx context.Context, id int64, req dto.UpdateActivityRequest, thumbnail *string) (*models.Activity, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must not be empty")
		}
		req.Name = &name
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update activity payload")
	}

	activity, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		activity.Name = *req.Name
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Duration != nil {
		activity.Duration = *req.Duration
	}
	if req.StressLevel != nil {
		activity.StressLevel = *req.StressLevel
	}
	if req.Status != nil {
		activity.Status = *req.Status
	}
	if req.PublicationDate != nil {
		activity.PublicationDate = req.PublicationDate
	}
	if req.TypeID != nil && *req.TypeID != activity.TypeID {
		activityType, err := s.activeType(ctx, *req.TypeID)
		if err != nil {
			return nil, err
		}
		activity.TypeID = activityType.ID
		activity.Type = activityType
	}
	if thumbnail != nil {
		activity.Thumbnail = thumbnail
	}
	s.stampPublication(activity)

	if err := s.repo.Update(ctx, activity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, internalError(err, "failed to update activity")
	}
	return activity, nil
}

// Delete soft-deletes an activity.
func (s *ActivityService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return internalError(err, "failed to delete activity")
	}
	return nil
}

// stampPublication dates an activity the first time it is published.
func (s *ActivityService) stampPublication(activity *models.Activity) {
	if activity.Status == models.StatusPublished && activity.PublicationDate == nil {
		now := s.now()
		activity.PublicationDate = &now
	}
}

func (s *ActivityService) load(ctx context.Context, id int64) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, internalError(err, "failed to load activity")
	}
	return activity, nil
}

func (s *ActivityService) activeType(ctx context.Context, id int64) (*models.ActivityType, error) {
	activityType, err := s.types.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "activity type does not exist")
		}
		return nil, internalError(err, "failed to load activity type")
	}
	return activityType, nil
}
