package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/internal/dto"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

const activityUploadPrefix = "activities"

type activityService interface {
	List(ctx context.Context, query dto.ActivityQuery) ([]models.Activity, *models.Pagination, error)
	Latest(ctx context.Context, count int) ([]models.Activity, error)
	Get(ctx context.Context, id int64, includeUnpublished bool) (*models.Activity, error)
	Create(ctx context.Context, req dto.CreateActivityRequest, thumbnail *string) (*models.Activity, error)
	Update(ctx context.Context, id int64, req dto.UpdateActivityRequest, thumbnail *string) (*models.Activity, error)
	Delete(ctx context.Context, id int64) error
}

// ActivityHandler exposes the activity catalogue.
type ActivityHandler struct {
	service activityService
	uploads uploadService
	policy  access.Policy
}

// NewActivityHandler creates an activity handler.
func NewActivityHandler(svc activityService, uploads uploadService, policy access.Policy) *ActivityHandler {
	return &ActivityHandler{service: svc, uploads: uploads, policy: policy}
}

// List godoc
// @Summary Search activities
// @Description Only editors may list non-published activities
// @Tags Activities
// @Produce json
// @Param status query string false "DRAFT, HIDDEN or PUBLISHED"
// @Param query query string false "Text search on name and description"
// @Param typeId query int false "Activity type"
// @Param stressLevel query int false "Stress level 1-5"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	var query dto.ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid activity query"))
		return
	}
	if !h.canEdit(c) {
		query.Status = string(models.StatusPublished)
	}

	activities, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, pagination)
}

// Latest godoc
// @Summary Latest published activities
// @Tags Activities
// @Produce json
// @Param count query int false "Number of activities (default 5)"
// @Success 200 {object} response.Envelope
// @Router /activities/latest [get]
func (h *ActivityHandler) Latest(c *gin.Context) {
	count, _ := strconv.Atoi(c.Query("count"))

	activities, err := h.service.Latest(c.Request.Context(), count)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Get godoc
// @Summary Get activity
// @Tags Activities
// @Produce json
// @Param id path int true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	activity, err := h.service.Get(c.Request.Context(), id, h.canEdit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Create godoc
// @Summary Create activity
// @Tags Activities
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param description formData string true "Description"
// @Param duration formData int true "Duration in minutes"
// @Param stress_level formData int true "Stress level 1-5"
// @Param status formData string false "DRAFT, HIDDEN or PUBLISHED"
// @Param type_id formData int true "Activity type"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	var req dto.CreateActivityRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid activity payload"))
		return
	}

	thumbnail, err := storeThumbnail(c, h.uploads, activityUploadPrefix)
	if err != nil {
		response.Error(c, err)
		return
	}

	activity, err := h.service.Create(c.Request.Context(), req, thumbnail)
	if err != nil {
		discardThumbnail(c, h.uploads, thumbnail)
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// Update godoc
// @Summary Update activity
// @Tags Activities
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Activity ID"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateActivityRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid activity payload"))
		return
	}

	current, err := h.service.Get(c.Request.Context(), id, true)
	if err != nil {
		response.Error(c, err)
		return
	}

	thumbnail, err := storeThumbnail(c, h.uploads, activityUploadPrefix)
	if err != nil {
		response.Error(c, err)
		return
	}

	activity, err := h.service.Update(c.Request.Context(), id, req, thumbnail)
	if err != nil {
		discardThumbnail(c, h.uploads, thumbnail)
		response.Error(c, err)
		return
	}
	if thumbnail != nil {
		discardThumbnail(c, h.uploads, current.Thumbnail)
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Param id path int true "Activity ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
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

func (h *ActivityHandler) canEdit(c *gin.Context) bool {
	return h.policy.Allows(claimsFromContext(c), access.OpActivitiesWrite)
}
