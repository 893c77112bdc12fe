package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/shared/auth"
	"readability-backend/internal/shared/server/respond"
)

const (
	principalKey = "principal"

	guestHeader   = "X-Guest-Id"
	guestIDPrefix = "guest:"
	maxGuestIDLen = 128

	// GuestRole is assigned to callers identified only by X-Guest-Id.
	GuestRole = "guest"
	// DefaultRole is assigned to signed-in users whose token carries no role.
	DefaultRole = "member"
)

// Principal is the caller identity resolved from a session token or guest header.
type Principal struct {
	ID      string
	Email   string
	Name    string
	Picture string
	Role    string
	Guest   bool
}

// publicPrefixes bypass identity checks entirely.
var publicPrefixes = []string{
	"/api/v1/auth/google/",
	"/shared/",
	"/healthz",
	"/metrics",
}

// Auth resolves the caller from a Bearer token or, failing that, the guest
// header. A malformed token is rejected even when a guest id is present.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			p, ok := principalFromBearer(header)
			if !ok {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			SetPrincipal(c, p)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader(guestHeader))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		if !validGuestID(guestID) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid guest id", nil)
			return
		}
		SetPrincipal(c, Principal{ID: guestIDPrefix + guestID, Role: GuestRole, Guest: true})
		c.Next()
	}
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func principalFromBearer(header string) (Principal, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return Principal{}, false
	}
	claims, err := auth.VerifyJWT(token)
	if err != nil {
		return Principal{}, false
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" {
		role = DefaultRole
	}
	return Principal{
		ID:      claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Role:    role,
	}, true
}

// validGuestID accepts the browser-generated ids the UI sends: short tokens of
// letters, digits, dashes and underscores.
func validGuestID(id string) bool {
	if len(id) > maxGuestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// SetPrincipal stores the caller identity on the request.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
}

// PrincipalFromContext returns the identity stored by Auth.
func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	if c == nil {
		return Principal{}, false
	}
	val, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := val.(Principal)
	return p, ok
}

// IsGuestFromContext reports whether the request carries only a guest identity.
func IsGuestFromContext(c *gin.Context) bool {
	p, _ := PrincipalFromContext(c)
	return p.Guest
}

func UserIDFromContext(c *gin.Context) string {
	p, _ := PrincipalFromContext(c)
	return p.ID
}

func UserRoleFromContext(c *gin.Context) string {
	p, _ := PrincipalFromContext(c)
	return p.Role
}

func UserEmailFromContext(c *gin.Context) string {
	p, _ := PrincipalFromContext(c)
	return p.Email
}

func UserNameFromContext(c *gin.Context) string {
	p, _ := PrincipalFromContext(c)
	return p.Name
}

func UserPictureFromContext(c *gin.Context) string {
	p, _ := PrincipalFromContext(c)
	return p.Picture
}
