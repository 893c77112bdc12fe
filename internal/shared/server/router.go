package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/account"
	"readability-backend/internal/analyses"
	googleauth "readability-backend/internal/auth"
	"readability-backend/internal/pipeline"
	"readability-backend/internal/quota"
	"readability-backend/internal/services/health"
	"readability-backend/internal/shares"
	"readability-backend/internal/shared/metrics"
	"readability-backend/internal/shared/server/middleware"
	"readability-backend/internal/shared/server/respond"
	"readability-backend/internal/users"
)

const (
	rateGroupAnalyze = "ANALYZE"
	rateGroupPoll    = "RUN_POLL"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Env             string
	CORSAllowOrigin []string
	RateLimits      map[string]middleware.RateLimitRule

	Health         *health.Service
	RunHandler     *pipeline.Handler
	HistoryHandler *analyses.Handler
	ShareHandler   *shares.Handler
	QuotaHandler   *quota.Handler
	AccountHandler *account.Handler
	UserHandler    *users.Handler
	GoogleAuth     *googleauth.GoogleService
}

// DefaultRateLimits returns per-principal limits for the analyze and polling routes.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupAnalyze: {Rate: 0.2, Burst: 5},
		rateGroupPoll:    {Rate: 5, Burst: 20},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env != "dev" && deps.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.CORSAllowOrigin),
		middleware.Auth(deps.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rules,
			GroupFor: rateGroupFor,
		}),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	r.GET("/healthz", func(c *gin.Context) {
		status := healthSvc.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	r.GET("/metrics", metrics.Handler())

	if deps.ShareHandler != nil {
		deps.ShareHandler.RegisterPublicRoutes(r)
	}

	api := r.Group("/api/v1")
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}
	if deps.RunHandler != nil {
		deps.RunHandler.RegisterRoutes(api)
	}
	if deps.HistoryHandler != nil {
		deps.HistoryHandler.RegisterRoutes(api)
	}
	if deps.ShareHandler != nil {
		deps.ShareHandler.RegisterRoutes(api)
	}
	if deps.QuotaHandler != nil {
		deps.QuotaHandler.RegisterRoutes(api)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/readability/analyze/"):
		return rateGroupAnalyze
	case c.Request.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/readability/runs/"):
		if strings.HasSuffix(path, "/events") {
			return ""
		}
		return rateGroupPoll
	default:
		return ""
	}
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
