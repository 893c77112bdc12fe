package account

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"readability-backend/internal/shared/server/middleware"
	"readability-backend/internal/shared/server/respond"
)

const guestOwnerPrefix = "guest:"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/claim-guest", h.claimGuest)
}

// claimGuest needs a bearer token for the account and the previous guest id
// in X-Guest-Id.
func (h *Handler) claimGuest(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	userID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if middleware.IsGuestFromContext(c) || userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
		return
	}

	guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	if guestID == "" {
		respond.Invalid(c, "missing X-Guest-Id header", "X-Guest-Id", "required")
		return
	}
	if _, err := uuid.Parse(guestID); err != nil {
		respond.Invalid(c, "invalid guest id", "X-Guest-Id", "invalid")
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), guestOwnerPrefix+guestID, userID, middleware.UserRoleFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to claim guest data", nil)
		return
	}
	respond.OK(c, result)
}
