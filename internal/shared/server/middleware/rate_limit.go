package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"readability-backend/internal/shared/metrics"
)

const (
	defaultRateLimitGroup = "DEFAULT"
)

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one limiter per principal and route group.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      now,
	}
}

// RateLimit rejects requests over the group's rule with 429 and Retry-After.
// Principals are the authenticated or guest id, falling back to client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	groupOf := func(c *gin.Context) string {
		if cfg.GroupFor == nil {
			return cfg.DefaultGroup
		}
		if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
			return g
		}
		return cfg.DefaultGroup
	}
	return func(c *gin.Context) {
		group := groupOf(c)
		rule, limited := cfg.Rules[group]
		if !limited {
			c.Next()
			return
		}
		if ok, wait := cfg.Limiter.Allow(limiterKey(c, group), rule); !ok {
			metrics.IncRateLimited(group)
			tooManyRequests(c, wait)
			return
		}
		c.Next()
	}
}

func limiterKey(c *gin.Context, group string) string {
	principal := strings.TrimSpace(UserIDFromContext(c))
	if principal == "" {
		principal = c.ClientIP()
	}
	return principal + "|" + group
}

// tooManyRequests reports the wait in whole seconds in Retry-After and in
// milliseconds in the body. An unknown wait is reported as one second.
func tooManyRequests(c *gin.Context, wait time.Duration) {
	if wait <= 0 {
		wait = time.Second
	}
	seconds := int64(math.Ceil(wait.Seconds()))
	c.Header("Retry-After", strconv.FormatInt(seconds, 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":        "rate_limited",
		"retryAfterMs": wait.Milliseconds(),
	})
}

// Allow takes a token for key. When the bucket is empty it reports the wait
// until the next one without consuming it.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	if lim.AllowN(now, 1) {
		return true, 0
	}
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}
