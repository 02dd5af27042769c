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

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	SetActive(ctx context.Context, id int64, active bool, updatedAt time.Time) error
	Anonymize(ctx context.Context, id int64, at time.Time) error
}

type roleLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Role, error)
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=6"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	IsActive *bool  `json:"is_active"`
}

// UpdateUserRequest payload for updating users. Absent fields are left unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	RoleID   *int64  `json:"role_id" validate:"omitempty,gt=0"`
	IsActive *bool   `json:"is_active"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	roles     roleLookup
	hasher    passwordHasher
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, roles roleLookup, hasher passwordHasher, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{
		repo:      repo,
		roles:     roles,
		hasher:    hasher,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	switch filter.Status {
	case "":
		filter.Status = models.UserStatusAll
	case models.UserStatusAll, models.UserStatusActive, models.UserStatusInactive:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be all, active or inactive")
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.load(ctx, id)
}

// ResolveProfile returns the user with the resolved role label and level.
func (s *UserService) ResolveProfile(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == nil {
		role, err := s.assignableRole(ctx, user.RoleID, true)
		if err != nil {
			return nil, err
		}
		user.Role = &models.RoleSummary{ID: role.ID, Label: role.Label, Level: role.Level}
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}

	if err := s.ensureEmailAvailable(ctx, req.Email, 0); err != nil {
		return nil, err
	}

	role, err := s.assignableRole(ctx, req.RoleID, false)
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		RoleID:       role.ID,
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, s.writeError(err, "failed to create user")
	}
	user.Role = &models.RoleSummary{ID: role.ID, Label: role.Label, Level: role.Level}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  auditPayload(map[string]interface{}{"email": user.Email, "role_id": user.RoleID, "is_active": user.IsActive}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// Update modifies the user attributes present in req.
func (s *UserService) Update(ctx context.Context, id int64, req UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must not be empty")
		}
		req.Name = &name
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update user payload")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	oldPayload := auditPayload(map[string]interface{}{"email": user.Email, "name": user.Name, "role_id": user.RoleID, "is_active": user.IsActive})

	if req.Email != nil && *req.Email != user.Email {
		if err := s.ensureEmailAvailable(ctx, *req.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.RoleID != nil && *req.RoleID != user.RoleID {
		role, err := s.assignableRole(ctx, *req.RoleID, false)
		if err != nil {
			return nil, err
		}
		user.RoleID = role.ID
		user.Role = &models.RoleSummary{ID: role.ID, Label: role.Label, Level: role.Level}
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, internalError(err, "failed to hash password")
		}
		user.PasswordHash = hash
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.writeError(err, "failed to update user")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  auditPayload(map[string]interface{}{"email": user.Email, "name": user.Name, "role_id": user.RoleID, "is_active": user.IsActive, "password_changed": req.Password != nil}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// A wrong current password leaves the stored hash untouched.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid change password payload")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return internalError(err, "failed to update password")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    &user.ID,
		Action:     models.AuditActionPasswordChange,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// Disable clears the active flag.
func (s *UserService) Disable(ctx context.Context, id int64, meta models.RequestMeta) (*models.User, error) {
	return s.setActive(ctx, id, false, models.AuditActionUserDisable, meta)
}

// Restore sets the active flag back.
func (s *UserService) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.User, error) {
	return s.setActive(ctx, id, true, models.AuditActionUserRestore, meta)
}

// Delete anonymises an inactive user and stamps the delete marker.
func (s *UserService) Delete(ctx context.Context, id int64, meta models.RequestMeta) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.IsActive {
		return appErrors.Clone(appErrors.ErrForbidden, "active users must be disabled before deletion")
	}

	if err := s.repo.Anonymize(ctx, user.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrForbidden, "active users must be disabled before deletion")
		}
		return internalError(err, "failed to delete user")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  auditPayload(map[string]interface{}{"email": user.Email, "role_id": user.RoleID}),
		NewValues:  auditPayload(map[string]interface{}{"deleted": true}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

func (s *UserService) setActive(ctx context.Context, id int64, active bool, action string, meta models.RequestMeta) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.IsActive

	now := s.now()
	if err := s.repo.SetActive(ctx, user.ID, active, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to update user status")
	}
	user.IsActive = active
	user.UpdatedAt = now

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    actorRef(meta),
		Action:     action,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  auditPayload(map[string]interface{}{"is_active": previous}),
		NewValues:  auditPayload(map[string]interface{}{"is_active": active}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return user, nil
}

func (s *UserService) load(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) ensureEmailAvailable(ctx context.Context, email string, self int64) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if existing.ID == self {
			return nil
		}
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return internalError(err, "failed to check email uniqueness")
	}
	return nil
}

// assignableRole loads a role; deleted roles are rejected unless allowDeleted.
func (s *UserService) assignableRole(ctx context.Context, roleID int64, allowDeleted bool) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, internalError(err, "failed to load role")
	}
	if role.Deleted() && !allowDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role is disabled")
	}
	return role, nil
}

func (s *UserService) writeError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	case errors.Is(err, repository.ErrRoleUnavailable):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "role is disabled")
	}
	return internalError(err, message)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
