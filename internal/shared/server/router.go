package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/documents"
	"quotation-backend/internal/quotations"
	"quotation-backend/internal/services/health"
	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/config"
	"quotation-backend/internal/shared/metrics"
	"quotation-backend/internal/shared/server/middleware"
	"quotation-backend/internal/shared/server/respond"
	"quotation-backend/internal/users"
)

const (
	rateGroupAuth    = "AUTH"
	rateGroupUpload  = "UPLOAD"
	rateGroupDefault = "DEFAULT"
)

// RateLimitRules are the per-principal budgets for each route group.
var RateLimitRules = map[string]middleware.RateLimitRule{
	rateGroupAuth:    middleware.PerWindow(10, 15*time.Minute),
	rateGroupUpload:  middleware.PerWindow(20, time.Hour),
	rateGroupDefault: middleware.PerWindow(100, 15*time.Minute),
}

// RouterDeps carries everything NewRouter mounts.
type RouterDeps struct {
	Config     config.Config
	Tokens     middleware.TokenVerifier
	Limiter    middleware.Limiter
	Health     *health.Service
	Users      *users.Handler
	Quotations *quotations.Handler
	Documents  *documents.Handler
	Dashboard  *DashboardHandler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		st := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})

	public := api.Group("")
	authed := api.Group("", middleware.Auth(deps.Tokens))
	if deps.Config.RateLimitEnabled {
		public.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        RateLimitRules,
			DefaultGroup: rateGroupAuth,
			Limiter:      deps.Limiter,
		}))
		authed.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        RateLimitRules,
			DefaultGroup: rateGroupDefault,
			GroupFor:     uploadGroup,
			Limiter:      deps.Limiter,
		}))
	}
	admin := authed.Group("", middleware.RequireRole(auth.RoleAdministrator))

	deps.Users.RegisterPublicRoutes(public)
	deps.Users.RegisterRoutes(authed)
	deps.Users.RegisterAdminRoutes(admin)
	deps.Quotations.RegisterRoutes(authed)
	deps.Quotations.RegisterAdminRoutes(admin)
	deps.Documents.RegisterRoutes(authed)
	deps.Documents.RegisterAdminRoutes(admin)
	if deps.Dashboard != nil {
		deps.Dashboard.RegisterRoutes(admin)
	}

	return r
}

func uploadGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/documents" {
		return rateGroupUpload
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
