package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/shared/telemetry"
)

const (
	runIDKey      = "runId"
	analysisIDKey = "analysisId"
)

var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// Logging emits one structured line per request. Probe and scrape routes are
// logged at debug level.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		principal, _ := PrincipalFromContext(c)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":     principal.ID,
			"role":        principal.Role,
			"run_id":      contextOrParam(c, runIDKey, "runId"),
			"analysis_id": contextOrParam(c, analysisIDKey, "id"),
			"is_guest":    principal.Guest,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		if _, ok := quietPaths[c.Request.URL.Path]; ok {
			telemetry.Debug("http.request", fields)
			return
		}
		telemetry.Info("http.request", fields)
	}
}

// SetRunID records the run a request created so the access log carries it.
func SetRunID(c *gin.Context, runID string) {
	c.Set(runIDKey, runID)
}

func contextOrParam(c *gin.Context, key, param string) string {
	if v := c.GetString(key); v != "" {
		return v
	}
	return c.Param(param)
}
