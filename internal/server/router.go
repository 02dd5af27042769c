package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/internal/handler"
	"github.com/Organisation-de-merge/backend-cesizen/internal/middleware"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/service"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/config"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/logger"
	corsmiddleware "github.com/Organisation-de-merge/backend-cesizen/pkg/middleware/cors"
	reqidmiddleware "github.com/Organisation-de-merge/backend-cesizen/pkg/middleware/requestid"
)

// opsPaths are polled by orchestrators and scrapers.
var opsPaths = []string{"/health", "/ready", "/metrics"}

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Roles         *handler.RoleHandler
	Users         *handler.UserHandler
	Activities    *handler.ActivityHandler
	ActivityTypes *handler.ActivityTypeHandler
	Favorites     *handler.FavoriteHandler
	Pages         *handler.PageHandler
	Menus         *handler.MenuHandler
	Uploads       *handler.UploadHandler
	Metrics       *handler.MetricsHandler
}

// RouterOptions carries the cross-cutting collaborators of the router.
type RouterOptions struct {
	Env       string
	APIPrefix string
	CORS      config.CORSConfig
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Tokens    middleware.TokenValidator
	Audit     middleware.AuditRecorder
	Policy    access.Policy
}

// NewRouter mounts the API under opts.APIPrefix.
func NewRouter(opts RouterOptions, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Policy == nil {
		opts.Policy = access.DefaultPolicy()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, opsPaths...))
	r.Use(corsmiddleware.New(opts.CORS))
	r.Use(middleware.Metrics(opts.Metrics, opsPaths...))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	authn := middleware.JWT(opts.Tokens)
	optional := middleware.OptionalJWT(opts.Tokens)
	require := func(op access.Operation) gin.HandlerFunc {
		return middleware.Require(opts.Policy, op)
	}
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, opts.Logger, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.GET("/me", authn, require(access.OpAuthMe), h.Auth.Me)
	auth.POST("/change-password", authn, require(access.OpAuthChangePassword), h.Auth.ChangePassword)

	roles := api.Group("/roles", authn)
	roles.GET("", require(access.OpRolesList), h.Roles.List)
	roles.GET("/:id", require(access.OpRolesGet), h.Roles.Get)
	roles.POST("", require(access.OpRolesCreate), h.Roles.Create)
	roles.PUT("/:id", require(access.OpRolesUpdate), h.Roles.Update)
	roles.DELETE("/:id", require(access.OpRolesDisable), h.Roles.Disable)
	roles.PUT("/:id/restore", require(access.OpRolesRestore), h.Roles.Restore)

	users := api.Group("/users", authn)
	users.GET("", require(access.OpUsersList), h.Users.List)
	users.GET("/:id", require(access.OpUsersGet), h.Users.Get)
	users.POST("", require(access.OpUsersCreate), h.Users.Create)
	users.PUT("/:id", require(access.OpUsersUpdate), h.Users.Update)
	users.PUT("/:id/disable", require(access.OpUsersDisable), h.Users.Disable)
	users.PUT("/:id/restore", require(access.OpUsersRestore), h.Users.Restore)
	users.DELETE("/:id", require(access.OpUsersDelete), h.Users.Delete)

	activities := api.Group("/activities")
	activities.GET("", optional, h.Activities.List)
	activities.GET("/latest", h.Activities.Latest)
	activities.GET("/:id", optional, h.Activities.Get)
	activitiesWrite := activities.Group("", authn, require(access.OpActivitiesWrite))
	activitiesWrite.POST("", audit(models.AuditActionContentCreate, "activities"), h.Activities.Create)
	activitiesWrite.PUT("/:id", audit(models.AuditActionContentUpdate, "activities"), h.Activities.Update)
	activitiesWrite.DELETE("/:id", audit(models.AuditActionContentDelete, "activities"), h.Activities.Delete)

	types := api.Group("/activity-types")
	types.GET("", h.ActivityTypes.List)
	types.GET("/:id", h.ActivityTypes.Get)
	typesWrite := types.Group("", authn, require(access.OpActivityTypesWrite))
	typesWrite.POST("", audit(models.AuditActionContentCreate, "activity_types"), h.ActivityTypes.Create)
	typesWrite.PUT("/:id", audit(models.AuditActionContentUpdate, "activity_types"), h.ActivityTypes.Update)
	typesWrite.DELETE("/:id", audit(models.AuditActionContentDelete, "activity_types"), h.ActivityTypes.Delete)

	favorites := api.Group("/favorites", authn)
	favorites.GET("", require(access.OpFavoritesOwn), h.Favorites.List)
	favorites.GET("/user/:id", require(access.OpFavoritesByUser), h.Favorites.ListForUser)
	favorites.POST("/:activityId", require(access.OpFavoritesOwn), h.Favorites.Add)
	favorites.DELETE("/:activityId", require(access.OpFavoritesOwn), h.Favorites.Remove)

	pages := api.Group("/pages")
	pages.GET("", authn, require(access.OpPagesListAll), h.Pages.List)
	pages.GET("/published", h.Pages.ListPublished)
	pages.GET("/:id", optional, h.Pages.Get)
	pagesWrite := pages.Group("", authn, require(access.OpPagesWrite))
	pagesWrite.POST("", audit(models.AuditActionContentCreate, "pages"), h.Pages.Create)
	pagesWrite.PUT("/:id", audit(models.AuditActionContentUpdate, "pages"), h.Pages.Update)
	pagesWrite.DELETE("/:id", audit(models.AuditActionContentDelete, "pages"), h.Pages.Delete)

	menus := api.Group("/menus")
	menus.GET("", h.Menus.List)
	menus.GET("/:id", h.Menus.Get)
	menusWrite := menus.Group("", authn, require(access.OpMenusWrite))
	menusWrite.POST("", audit(models.AuditActionContentCreate, "menus"), h.Menus.Create)
	menusWrite.PUT("/:id", audit(models.AuditActionContentUpdate, "menus"), h.Menus.Update)
	menusWrite.DELETE("/:id", audit(models.AuditActionContentDelete, "menus"), h.Menus.Delete)

	api.GET("/uploads/*key", h.Uploads.Serve)

	return r
}
