package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/shared/server/middleware"
)

func newRouter(svc *Service, identity middleware.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetPrincipal(c, identity)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func getMe(r *gin.Engine) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestMeReturnsStoredRole(t *testing.T) {
	svc := NewService(NewMemoryRepo(), []string{"lead@example.com"})
	if _, err := svc.UpsertFromAuth(context.Background(), User{ID: "google:1", Email: "lead@example.com", Name: "Lead"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	r := newRouter(svc, middleware.Principal{ID: "google:1", Role: DefaultRole})

	w, body := getMe(r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["role"] != RoleAdmin || body["name"] != "Lead" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMeFallsBackToClaims(t *testing.T) {
	r := newRouter(NewService(NewMemoryRepo(), nil), middleware.Principal{
		ID:    "google:9",
		Email: "nine@example.com",
		Role:  "member",
	})

	w, body := getMe(r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["email"] != "nine@example.com" || body["role"] != "member" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMeRejectsGuests(t *testing.T) {
	r := newRouter(NewService(NewMemoryRepo(), nil), middleware.Principal{ID: "guest:1", Role: "guest", Guest: true})

	if w, _ := getMe(r); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
