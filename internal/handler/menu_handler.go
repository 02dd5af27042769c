package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/dto"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

type menuService interface {
	List(ctx context.Context) ([]models.InformationMenu, error)
	Get(ctx context.Context, id int64) (*models.InformationMenu, error)
	Create(ctx context.Context, req dto.MenuRequest) (*models.InformationMenu, error)
	Update(ctx context.Context, id int64, req dto.MenuRequest) (*models.InformationMenu, error)
	Delete(ctx context.Context, id int64) error
}

// MenuHandler exposes information menus.
type MenuHandler struct {
	service menuService
}

// NewMenuHandler creates a menu handler.
func NewMenuHandler(svc menuService) *MenuHandler {
	return &MenuHandler{service: svc}
}

// List godoc
// @Summary List menus
// @Tags Menus
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /menus [get]
func (h *MenuHandler) List(c *gin.Context) {
	menus, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menus, nil)
}

// Get godoc
// @Summary Get menu with its published pages
// @Tags Menus
// @Produce json
// @Param id path int true "Menu ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /menus/{id} [get]
func (h *MenuHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	menu, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menu, nil)
}

// Create godoc
// @Summary Create menu
// @Tags Menus
// @Accept json
// @Produce json
// @Param payload body dto.MenuRequest true "Menu"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /menus [post]
func (h *MenuHandler) Create(c *gin.Context) {
	var req dto.MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid menu payload"))
		return
	}
	menu, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, menu)
}

// Update godoc
// @Summary Replace menu
// @Tags Menus
// @Accept json
// @Produce json
// @Param id path int true "Menu ID"
// @Param payload body dto.MenuRequest true "Menu"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /menus/{id} [put]
func (h *MenuHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid menu payload"))
		return
	}
	menu, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, menu, nil)
}

// Delete godoc
// @Summary Delete menu
// @Tags Menus
// @Param id path int true "Menu ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /menus/{id} [delete]
func (h *MenuHandler) Delete(c *gin.Context) {
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
