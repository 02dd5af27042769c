package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/service"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

type roleService interface {
	List(ctx context.Context, status models.RoleStatus) ([]models.Role, error)
	Get(ctx context.Context, id int64) (*models.Role, error)
	Create(ctx context.Context, req service.CreateRoleRequest, meta models.RequestMeta) (*models.Role, error)
	Update(ctx context.Context, id int64, req service.UpdateRoleRequest, meta models.RequestMeta) (*models.Role, error)
	Disable(ctx context.Context, id int64, meta models.RequestMeta) (*models.Role, error)
	Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.Role, error)
}

// RoleHandler exposes role lifecycle endpoints.
type RoleHandler struct {
	service roleService
}

// NewRoleHandler creates a role handler.
func NewRoleHandler(svc roleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// List godoc
// @Summary List roles
// @Description List non-administrative roles with their users
// @Tags Roles
// @Produce json
// @Param status query string false "all, active or inactive"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.service.List(c.Request.Context(), models.RoleStatus(c.DefaultQuery("status", string(models.RoleStatusAll))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// Get godoc
// @Summary Get role
// @Tags Roles
// @Produce json
// @Param id path int true "Role ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	role, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Create godoc
// @Summary Create role
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body service.CreateRoleRequest true "Role payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid role payload"))
		return
	}

	role, err := h.service.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

// Update godoc
// @Summary Update role
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path int true "Role ID"
// @Param payload body service.UpdateRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid role payload"))
		return
	}

	role, err := h.service.Update(c.Request.Context(), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Disable godoc
// @Summary Disable role
// @Description Soft-delete the role and move its users onto the base role
// @Tags Roles
// @Produce json
// @Param id path int true "Role ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /roles/{id} [delete]
func (h *RoleHandler) Disable(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	role, err := h.service.Disable(c.Request.Context(), id, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Restore godoc
// @Summary Restore role
// @Tags Roles
// @Produce json
// @Param id path int true "Role ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roles/{id}/restore [put]
func (h *RoleHandler) Restore(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	role, err := h.service.Restore(c.Request.Context(), id, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}
