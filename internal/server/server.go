package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/internal/handler"
	"github.com/Organisation-de-merge/backend-cesizen/internal/repository"
	"github.com/Organisation-de-merge/backend-cesizen/internal/service"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/cache"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/config"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/database"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/mail"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/password"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/storage"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/token"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	db         *sqlx.DB
	redis      *redis.Client
	logger     *zap.Logger
}

// New connects the backing stores and wires repositories, services and handlers.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*Server, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	} else {
		logr.Info("redis disabled, password reset throttling is off")
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("init storage: %w", err)
	}

	validate := validator.New()
	policy := access.NewPolicy(cfg.Roles.AdminLevel)
	metrics := service.NewMetricsService()
	hasher := password.NewHasher(bcrypt.DefaultCost)
	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)

	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	activityTypeRepo := repository.NewActivityTypeRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	pageRepo := repository.NewPageRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	throttle := repository.NewThrottleRepository(redisClient)

	roleService := service.NewRoleService(roleRepo, auditRepo, metrics, validate, logr, service.RoleConfig{
		BaseLabel:  cfg.Roles.BaseLabel,
		AdminLevel: cfg.Roles.AdminLevel,
	})
	userService := service.NewUserService(userRepo, roleRepo, hasher, auditRepo, validate, logr)
	authService := service.NewAuthService(
		userRepo,
		roleRepo,
		tokens,
		hasher,
		mail.New(cfg.Mail, logr),
		throttle,
		auditRepo,
		metrics,
		validate,
		logr,
		service.AuthConfig{
			BaseRoleLabel:       cfg.Roles.BaseLabel,
			ResetCodeTTL:        cfg.Reset.CodeTTL,
			ResetThrottleWindow: cfg.Reset.ThrottleWindow,
		},
	)
	activityService := service.NewActivityService(activityRepo, activityTypeRepo, validate, logr)
	activityTypeService := service.NewActivityTypeService(activityTypeRepo, validate, logr)
	favoriteService := service.NewFavoriteService(favoriteRepo, activityRepo, userRepo, logr)
	pageService := service.NewPageService(pageRepo, validate, logr)
	menuService := service.NewMenuService(menuRepo, pageRepo, validate, logr)
	uploadService := service.NewUploadService(store, service.UploadConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	}, logr)

	router := NewRouter(RouterOptions{
		Env:       cfg.Env,
		APIPrefix: cfg.APIPrefix,
		CORS:      cfg.CORS,
		Logger:    logr,
		Metrics:   metrics,
		Tokens:    authService,
		Audit:     auditRepo,
		Policy:    policy,
	}, Handlers{
		Auth:          handler.NewAuthHandler(authService, userService),
		Roles:         handler.NewRoleHandler(roleService),
		Users:         handler.NewUserHandler(userService),
		Activities:    handler.NewActivityHandler(activityService, uploadService, policy),
		ActivityTypes: handler.NewActivityTypeHandler(activityTypeService),
		Favorites:     handler.NewFavoriteHandler(favoriteService),
		Pages:         handler.NewPageHandler(pageService, uploadService, policy),
		Menus:         handler.NewMenuHandler(menuService),
		Uploads:       handler.NewUploadHandler(uploadService),
		Metrics:       handler.NewMetricsHandler(metrics, db),
	})

	port := cfg.Port
	if port == 0 {
		port = 3000
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		router: router,
		db:     db,
		redis:  redisClient,
		logger: logr,
	}, nil
}

// Router exposes the gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.close()
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and releases the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
