package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/internal/dto"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

const pageUploadPrefix = "pages"

type pageService interface {
	List(ctx context.Context) ([]models.InformationPage, error)
	ListPublished(ctx context.Context) ([]models.InformationPage, error)
	Get(ctx context.Context, id int64, includeUnpublished bool) (*models.InformationPage, error)
	Create(ctx context.Context, req dto.CreatePageRequest, thumbnail *string) (*models.InformationPage, error)
	Update(ctx context.Context, id int64, req dto.UpdatePageRequest, thumbnail *string) (*models.InformationPage, error)
	Delete(ctx context.Context, id int64) error
}

// PageHandler exposes information pages.
type PageHandler struct {
	service pageService
	uploads uploadService
	policy  access.Policy
}

// NewPageHandler creates a page handler.
func NewPageHandler(svc pageService, uploads uploadService, policy access.Policy) *PageHandler {
	return &PageHandler{service: svc, uploads: uploads, policy: policy}
}

// List godoc
// @Summary List all pages
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /pages [get]
func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pages, nil)
}

// ListPublished godoc
// @Summary List published pages
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pages/published [get]
func (h *PageHandler) ListPublished(c *gin.Context) {
	pages, err := h.service.ListPublished(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pages, nil)
}

// Get godoc
// @Summary Get page
// @Description Non-administrators only see published pages
// @Tags Pages
// @Produce json
// @Param id path int true "Page ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id} [get]
func (h *PageHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	includeUnpublished := h.policy.Allows(claimsFromContext(c), access.OpPagesListAll)

	page, err := h.service.Get(c.Request.Context(), id, includeUnpublished)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Create godoc
// @Summary Create page
// @Tags Pages
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param status formData string false "DRAFT, HIDDEN or PUBLISHED"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pages [post]
func (h *PageHandler) Create(c *gin.Context) {
	var req dto.CreatePageRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid page payload"))
		return
	}

	thumbnail, err := storeThumbnail(c, h.uploads, pageUploadPrefix)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.service.Create(c.Request.Context(), req, thumbnail)
	if err != nil {
		discardThumbnail(c, h.uploads, thumbnail)
		response.Error(c, err)
		return
	}
	response.Created(c, page)
}

// Update godoc
// @Summary Update page
// @Tags Pages
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Page ID"
// @Param thumbnail formData file false "Thumbnail image"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id} [put]
func (h *PageHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdatePageRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid page payload"))
		return
	}

	current, err := h.service.Get(c.Request.Context(), id, true)
	if err != nil {
		response.Error(c, err)
		return
	}

	thumbnail, err := storeThumbnail(c, h.uploads, pageUploadPrefix)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.service.Update(c.Request.Context(), id, req, thumbnail)
	if err != nil {
		discardThumbnail(c, h.uploads, thumbnail)
		response.Error(c, err)
		return
	}
	if thumbnail != nil {
		discardThumbnail(c, h.uploads, current.Thumbnail)
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// Delete godoc
// @Summary Delete page
// @Tags Pages
// @Param id path int true "Page ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id} [delete]
func (h *PageHandler) Delete(c *gin.Context) {
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
