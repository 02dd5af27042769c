package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

type favoriteRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error)
	Add(ctx context.Context, userID, activityID int64) error
	Remove(ctx context.Context, userID, activityID int64) error
}

type activityLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Activity, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// FavoriteService manages bookmarked activities.
type FavoriteService struct {
	repo       favoriteRepository
	activities activityLookup
	users      userLookup
	logger     *zap.Logger
}

// NewFavoriteService creates an instance of FavoriteService.
func NewFavoriteService(repo favoriteRepository, activities activityLookup, users userLookup, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{repo: repo, activities: activities, users: users, logger: logger}
}

// List returns the favorites of userID with their activity and type.
func (s *FavoriteService) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	favorites, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to list favorites")
	}
	return favorites, nil
}

// ListForUser returns another user's favorites, after checking the user exists.
func (s *FavoriteService) ListForUser(ctx context.Context, userID int64) ([]models.Favorite, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	return s.List(ctx, userID)
}

// Add bookmarks a published activity. Adding twice is harmless.
func (s *FavoriteService) Add(ctx context.Context, userID, activityID int64) error {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return internalError(err, "failed to load activity")
	}
	if activity.Status != models.StatusPublished {
		return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	if err := s.repo.Add(ctx, userID, activityID); err != nil {
		return internalError(err, "failed to add favorite")
	}
	return nil
}

// Remove drops a bookmark.
func (s *FavoriteService) Remove(ctx context.Context, userID, activityID int64) error {
	if err := s.repo.Remove(ctx, userID, activityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "favorite not found")
		}
		return internalError(err, "failed to remove favorite")
	}
	return nil
}
