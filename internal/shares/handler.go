package shares

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/analyses"
	"readability-backend/internal/shared/server/middleware"
	"readability-backend/internal/shared/server/respond"
)

// Handler exposes share management and the public shared view.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches authenticated share routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/readability/analyses/:id/share", h.createShare)
	rg.GET("/readability/analyses/:id/share", h.getShareStatus)
	rg.DELETE("/readability/analyses/:id/share", h.revokeShare)
}

// RegisterPublicRoutes attaches the unauthenticated shared view.
func (h *Handler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/shared/:token", h.loadShared)
}

type createShareRequest struct {
	ExpiryDays *int `json:"expiryDays"`
}

func caller(c *gin.Context) analyses.Caller {
	return analyses.Caller{ID: middleware.UserIDFromContext(c), Role: middleware.UserRoleFromContext(c)}
}

func (h *Handler) createShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	link, err := h.Svc.Create(c.Request.Context(), caller(c), c.Param("id"), req.ExpiryDays)
	if err != nil {
		writeError(c, err, "failed to create share link")
		return
	}
	respond.Created(c, link)
}

func (h *Handler) getShareStatus(c *gin.Context) {
	status, err := h.Svc.Status(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch share status")
		return
	}
	respond.OK(c, status)
}

func (h *Handler) revokeShare(c *gin.Context) {
	if err := h.Svc.Revoke(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to revoke share link")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) loadShared(c *gin.Context) {
	shared, err := h.Svc.Load(c.Request.Context(), c.Param("token"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "share_unavailable", ErrShareUnavailable.Error(), nil)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Robots-Tag", "noindex")
	respond.OK(c, shared)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidExpiry):
		respond.Invalid(c, err.Error(), "expiryDays", "invalid")
	case errors.Is(err, analyses.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, analyses.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "only the owner can manage sharing for this analysis", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
