package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

type favoriteService interface {
	List(ctx context.Context, userID int64) ([]models.Favorite, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Favorite, error)
	Add(ctx context.Context, userID, activityID int64) error
	Remove(ctx context.Context, userID, activityID int64) error
}

// FavoriteHandler manages the caller's bookmarked activities.
type FavoriteHandler struct {
	service favoriteService
}

// NewFavoriteHandler creates a favorite handler.
func NewFavoriteHandler(svc favoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: svc}
}

// List godoc
// @Summary List my favorites
// @Tags Favorites
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /favorites [get]
func (h *FavoriteHandler) List(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	favorites, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, favorites, nil)
}

// ListForUser godoc
// @Summary List a user's favorites
// @Tags Favorites
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /favorites/user/{id} [get]
func (h *FavoriteHandler) ListForUser(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	favorites, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, favorites, nil)
}

// Add godoc
// @Summary Bookmark an activity
// @Tags Favorites
// @Param activityId path int true "Activity ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /favorites/{activityId} [post]
func (h *FavoriteHandler) Add(c *gin.Context) {
	claims, activityID, err := h.target(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Add(c.Request.Context(), claims.UserID, activityID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Remove a bookmark
// @Tags Favorites
// @Param activityId path int true "Activity ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /favorites/{activityId} [delete]
func (h *FavoriteHandler) Remove(c *gin.Context) {
	claims, activityID, err := h.target(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Remove(c.Request.Context(), claims.UserID, activityID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *FavoriteHandler) target(c *gin.Context) (*models.JWTClaims, int64, error) {
	claims, err := requireClaims(c)
	if err != nil {
		return nil, 0, err
	}
	activityID, err := pathID(c, "activityId")
	if err != nil {
		return nil, 0, err
	}
	return claims, activityID, nil
}
