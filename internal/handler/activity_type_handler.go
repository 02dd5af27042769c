package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/dto"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

type activityTypeService interface {
	List(ctx context.Context) ([]models.ActivityType, error)
	Get(ctx context.Context, id int64) (*models.ActivityType, error)
	Create(ctx context.Context, req dto.ActivityTypeRequest) (*models.ActivityType, error)
	Update(ctx context.Context, id int64, req dto.ActivityTypeRequest) (*models.ActivityType, error)
	Delete(ctx context.Context, id int64) error
}

// ActivityTypeHandler exposes activity type endpoints.
type ActivityTypeHandler struct {
	service activityTypeService
}

// NewActivityTypeHandler builds a new handler.
func NewActivityTypeHandler(svc activityTypeService) *ActivityTypeHandler {
	return &ActivityTypeHandler{service: svc}
}

// List godoc
// @Summary List activity types
// @Tags ActivityTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /activity-types [get]
func (h *ActivityTypeHandler) List(c *gin.Context) {
	types, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get activity type
// @Tags ActivityTypes
// @Produce json
// @Param id path int true "Activity type ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activity-types/{id} [get]
func (h *ActivityTypeHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	activityType, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activityType, nil)
}

// Create godoc
// @Summary Create activity type
// @Tags ActivityTypes
// @Accept json
// @Produce json
// @Param payload body dto.ActivityTypeRequest true "Activity type"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activity-types [post]
func (h *ActivityTypeHandler) Create(c *gin.Context) {
	var req dto.ActivityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid activity type payload"))
		return
	}
	activityType, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activityType)
}

// Update godoc
// @Summary Rename activity type
// @Tags ActivityTypes
// @Accept json
// @Produce json
// @Param id path int true "Activity type ID"
// @Param payload body dto.ActivityTypeRequest true "Activity type"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activity-types/{id} [put]
func (h *ActivityTypeHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ActivityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid activity type payload"))
		return
	}
	activityType, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activityType, nil)
}

// Delete godoc
// @Summary Delete activity type
// @Tags ActivityTypes
// @Param id path int true "Activity type ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activity-types/{id} [delete]
func (h *ActivityTypeHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
