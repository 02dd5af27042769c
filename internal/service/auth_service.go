package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/repository"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/mail"
)

const (
	resetCodeDigits   = 6
	resetCodeAttempts = 5
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	FindByResetCode(ctx context.Context, code string, now time.Time) (*models.User, error)
	SetResetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error
	ResetCodeInUse(ctx context.Context, code string, now time.Time) (bool, error)
	ConsumeResetCode(ctx context.Context, id int64, code, passwordHash string, now time.Time) error
}

type baseRoleLookup interface {
	FindActiveByLabel(ctx context.Context, label string) (*models.Role, error)
}

type tokenManager interface {
	RegisteredClaims(subject string) jwt.RegisteredClaims
	Sign(claims jwt.Claims) (string, error)
	Verify(raw string, claims jwt.Claims) error
	TTL() time.Duration
}

type resetThrottle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	BaseRoleLabel       string
	ResetCodeTTL        time.Duration
	ResetThrottleWindow time.Duration
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo         authUserRepository
	roles        baseRoleLookup
	tokens       tokenManager
	hasher       passwordHasher
	mailer       mail.Sender
	throttle     resetThrottle
	audit        auditRecorder
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	config       AuthConfig
	now          func() time.Time
	generateCode func() (string, error)
}

// NewAuthService constructs an AuthService instance. throttle may be nil.
func NewAuthService(
	repo authUserRepository,
	roles baseRoleLookup,
	tokens tokenManager,
	hasher passwordHasher,
	mailer mail.Sender,
	throttle resetThrottle,
	audit auditRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config AuthConfig,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ResetCodeTTL <= 0 {
		config.ResetCodeTTL = 15 * time.Minute
	}
	if mailer == nil {
		mailer = mail.NewLogSender(logger)
	}
	return &AuthService{
		repo:         repo,
		roles:        roles,
		tokens:       tokens,
		hasher:       hasher,
		mailer:       mailer,
		throttle:     throttle,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		config:       config,
		now:          func() time.Time { return time.Now().UTC() },
		generateCode: generateResetCode,
	}
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.ObserveAuthFailure("invalid_credentials")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internalError(err, "failed to fetch user")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.metrics.ObserveAuthFailure("invalid_credentials")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if !user.IsActive {
		s.metrics.ObserveAuthFailure("inactive")
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})
	return resp, nil
}

// Register creates an account on the base role and signs the user in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid register payload")
	}
	if req.Password != req.ConfirmPassword {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passwords do not match")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email uniqueness")
	}

	base, err := s.roles.FindActiveByLabel(ctx, s.config.BaseRoleLabel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("base role missing", zap.String("label", s.config.BaseRoleLabel))
			return nil, appErrors.Clone(appErrors.ErrInvariant, "base role is missing")
		}
		return nil, internalError(err, "failed to resolve base role")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		RoleID:       base.ID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrRoleUnavailable) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "base role is missing")
		}
		return nil, internalError(err, "failed to register user")
	}
	user.Role = &models.RoleSummary{ID: base.ID, Label: base.Label, Level: base.Level}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    &user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  auditPayload(map[string]interface{}{"email": user.Email, "role_id": user.RoleID}),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})
	return resp, nil
}

// ValidateToken verifies a token and returns its claims.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	if err := s.tokens.Verify(raw, claims); err != nil {
		s.metrics.ObserveAuthFailure("invalid_token")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.UserID == 0 {
		s.metrics.ObserveAuthFailure("invalid_token")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ForgotPassword issues a reset code for the account behind email, if any.
// Unknown or inactive accounts get the same silent success.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid forgot password payload")
	}

	if s.throttle != nil && s.config.ResetThrottleWindow > 0 {
		allowed, err := s.throttle.Allow(ctx, "reset:"+req.Email, s.config.ResetThrottleWindow)
		if err != nil {
			s.logger.Warn("reset throttle unavailable", zap.Error(err))
		} else if !allowed {
			return appErrors.Clone(appErrors.ErrTooManyRequests, "a reset code was requested recently")
		}
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to fetch user")
	}
	if !user.IsActive {
		return nil
	}

	now := s.now()
	code, err := s.uniqueCode(ctx, now)
	if err != nil {
		return err
	}

	expiresAt := now.Add(s.config.ResetCodeTTL)
	if err := s.repo.SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalError(err, "failed to store reset code")
	}
	s.metrics.ObserveResetCodeIssued()

	if err := s.mailer.SendResetCode(ctx, user.Email, code, s.config.ResetCodeTTL); err != nil {
		s.logger.Warn("failed to send reset code", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset code and stores the new password.
// Unknown, expired, malformed and already used codes all fail the same way.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid reset password payload")
	}
	invalid := appErrors.Clone(appErrors.ErrInvalidOrExpired, "invalid or expired code")
	if !isResetCode(req.Code) {
		return invalid
	}

	now := s.now()
	user, err := s.repo.FindByResetCode(ctx, req.Code, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid
		}
		return internalError(err, "failed to look up reset code")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	if err := s.repo.ConsumeResetCode(ctx, user.ID, req.Code, hash, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid
		}
		return internalError(err, "failed to reset password")
	}

	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		ActorID:    &user.ID,
		Action:     models.AuditActionPasswordReset,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
	})
	return nil
}

func (s *AuthService) issue(user *models.User) (*models.LoginResponse, error) {
	claims := &models.JWTClaims{
		UserID:           user.ID,
		Email:            user.Email,
		RoleID:           user.RoleID,
		RegisteredClaims: s.tokens.RegisteredClaims(strconv.FormatInt(user.ID, 10)),
	}
	if user.Role != nil {
		claims.RoleLabel = user.Role.Label
		claims.RoleLevel = user.Role.Level
	}

	signed, err := s.tokens.Sign(claims)
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}

	issuedAt := s.now()
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		IssuedAt:    issuedAt,
		User: models.UserInfo{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			RoleID:    user.RoleID,
			RoleLabel: claims.RoleLabel,
			RoleLevel: claims.RoleLevel,
		},
	}, nil
}

// uniqueCode draws codes until one is not held unexpired by another account.
func (s *AuthService) uniqueCode(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < resetCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return "", internalError(err, "failed to generate reset code")
		}
		inUse, err := s.repo.ResetCodeInUse(ctx, code, now)
		if err != nil {
			return "", internalError(err, "failed to check reset code")
		}
		if !inUse {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "failed to generate a unique reset code")
}

func generateResetCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}

func isResetCode(code string) bool {
	if len(code) != resetCodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
