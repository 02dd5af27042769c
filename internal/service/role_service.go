package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/repository"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

type roleRepository interface {
	List(ctx context.Context, filter models.RoleFilter) ([]models.Role, error)
	FindByID(ctx context.Context, id int64) (*models.Role, error)
	FindActiveByLabel(ctx context.Context, label string) (*models.Role, error)
	UsersByRole(ctx context.Context, roleIDs []int64) ([]models.RoleUser, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Restore(ctx context.Context, id int64, at time.Time) error
	DisableAndReassign(ctx context.Context, roleID, baseRoleID int64, at time.Time) (int64, error)
}

// RoleConfig names the fallback role and the administrative level hidden from listings.
type RoleConfig struct {
	BaseLabel  string
	AdminLevel int
}

// CreateRoleRequest represents payload for creating roles.
type CreateRoleRequest struct {
	Label string `json:"label" validate:"required,max=60"`
	Level *int   `json:"level" validate:"required,gte=0,lte=100"`
}

// UpdateRoleRequest is a partial role update.
type UpdateRoleRequest struct {
	Label *string `json:"label" validate:"omitempty,max=60"`
	Level *int    `json:"level" validate:"omitempty,gte=0,lte=100"`
}

// RoleService manages the role lifecycle.
type RoleService struct {
	repo      roleRepository
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    RoleConfig
	now       func() time.Time
}

// NewRoleService creates an instance of RoleService.
func NewRoleService(repo roleRepository, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RoleConfig) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.AdminLevel <= 0 {
		cfg.AdminLevel = 100
	}
	return &RoleService{
		repo:      repo,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IsBaseRole reports whether label names the fallback role.
func (s *RoleService) IsBaseRole(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(s.config.BaseLabel))
}

// List returns roles below the administrative level with their users.
func (s *RoleService) List(ctx context.Context, status models.RoleStatus) ([]models.Role, error) {
	switch status {
	case "":
		status = models.RoleStatusAll
	case models.RoleStatusAll, models.RoleStatusActive, models.RoleStatusInactive:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be all, active or inactive")
	}

	roles, err := s.repo.List(ctx, models.RoleFilter{Status: status, ExcludeLevel: s.config.AdminLevel})
	if err != nil {
		return nil, internalError(err, "failed to list roles")
	}
	if err := s.attachUsers(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// Get returns a role with its users.
func (s *RoleService) Get(ctx context.Context, id int64) (*models.Role, error) {
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	roles := []models.Role{*role}
	if err := s.attachUsers(ctx, roles); err != nil {
		return nil, err
	}
	return &roles[0], nil
}

// Create adds a new role.
func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	req.Label = strings.TrimSpace(req.Label)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create role payload")
	}

	role := &models.Role{Label: req.Label, Level: *req.Level}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, internalError(err, "failed to create role")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionRoleCreate,
		Resource:   "roles",
		ResourceID: &role.ID,
		NewValues:  auditPayload(map[string]interface{}{"label": role.Label, "level": role.Level}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return role, nil
}

// Update changes label and/or level of a role.
func (s *RoleService) Update(ctx context.Context, id int64, req UpdateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	if req.Label != nil {
		trimmed := strings.TrimSpace(*req.Label)
		if trimmed == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "label must not be empty")
		}
		req.Label = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update role payload")
	}

	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPayload := auditPayload(map[string]interface{}{"label": role.Label, "level": role.Level})

	if req.Label != nil && s.IsBaseRole(role.Label) && !s.IsBaseRole(*req.Label) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot rename the base role")
	}
	if req.Label != nil {
		role.Label = *req.Label
	}
	if req.Level != nil {
		role.Level = *req.Level
	}

	if err := s.repo.Update(ctx, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, internalError(err, "failed to update role")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionRoleUpdate,
		Resource:   "roles",
		ResourceID: &role.ID,
		OldValues:  oldPayload,
		NewValues:  auditPayload(map[string]interface{}{"label": role.Label, "level": role.Level}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return role, nil
}

// Disable soft-deletes a role after moving its users to the base role.
// Both writes happen in a single transaction.
func (s *RoleService) Disable(ctx context.Context, id int64, meta models.RequestMeta) (*models.Role, error) {
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.IsBaseRole(role.Label) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot remove the base role")
	}
	if role.Level >= s.config.AdminLevel {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot remove the administrative role")
	}
	if role.Deleted() {
		return role, nil
	}

	base, err := s.repo.FindActiveByLabel(ctx, s.config.BaseLabel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("base role missing", zap.String("label", s.config.BaseLabel))
			return nil, appErrors.Clone(appErrors.ErrInvariant, "base role is missing")
		}
		return nil, internalError(err, "failed to resolve base role")
	}

	now := s.now()
	reassigned, err := s.repo.DisableAndReassign(ctx, role.ID, base.ID, now)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		case errors.Is(err, repository.ErrBaseRoleUnavailable):
			return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "base role is missing")
		}
		return nil, internalError(err, "failed to disable role")
	}
	s.metrics.ObserveRoleDisabled(reassigned)

	role.DeletedAt = &now
	role.UpdatedAt = now

	s.logger.Info("role disabled",
		zap.Int64("role_id", role.ID),
		zap.Int64("base_role_id", base.ID),
		zap.Int64("reassigned_users", reassigned),
	)
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionRoleDisable,
		Resource:   "roles",
		ResourceID: &role.ID,
		OldValues:  auditPayload(map[string]interface{}{"deleted_at": nil}),
		NewValues:  auditPayload(map[string]interface{}{"deleted_at": now, "reassigned_to": base.ID, "reassigned_users": reassigned}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return role, nil
}

// Restore clears the soft-delete marker. Users moved away at disable time stay on the base role.
func (s *RoleService) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.Role, error) {
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !role.Deleted() {
		return role, nil
	}

	now := s.now()
	if err := s.repo.Restore(ctx, role.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, internalError(err, "failed to restore role")
	}
	previous := *role.DeletedAt
	role.DeletedAt = nil
	role.UpdatedAt = now

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionRoleRestore,
		Resource:   "roles",
		ResourceID: &role.ID,
		OldValues:  auditPayload(map[string]interface{}{"deleted_at": previous}),
		NewValues:  auditPayload(map[string]interface{}{"deleted_at": nil}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return role, nil
}

func (s *RoleService) load(ctx context.Context, id int64) (*models.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, internalError(err, "failed to load role")
	}
	return role, nil
}

func (s *RoleService) attachUsers(ctx context.Context, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	users, err := s.repo.UsersByRole(ctx, ids)
	if err != nil {
		return internalError(err, "failed to load role users")
	}
	byRole := make(map[int64][]models.RoleUser, len(roles))
	for _, u := range users {
		byRole[u.RoleID] = append(byRole[u.RoleID], u)
	}
	for i := range roles {
		roles[i].Users = byRole[roles[i].ID]
		if roles[i].Users == nil {
			roles[i].Users = []models.RoleUser{}
		}
	}
	return nil
}
