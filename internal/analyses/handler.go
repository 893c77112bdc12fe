package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/acquire"
	"readability-backend/internal/shared/server/middleware"
	"readability-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the history service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/readability/analyses", h.listAnalyses)
	rg.GET("/readability/analyses/:id", h.getAnalysis)
	rg.DELETE("/readability/analyses/:id", h.deleteAnalysis)
	rg.GET("/readability/trend", h.getTrend)
}

func callerFrom(c *gin.Context) Caller {
	return Caller{ID: middleware.UserIDFromContext(c), Role: middleware.UserRoleFromContext(c)}
}

func (h *Handler) listAnalyses(c *gin.Context) {
	if middleware.IsGuestFromContext(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	q, details := parseListQuery(c)
	if len(details) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid history filters", details)
		return
	}

	page, err := h.Svc.List(c.Request.Context(), callerFrom(c), q)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCursor):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid cursor", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		}
		return
	}

	items := make([]gin.H, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, summaryOf(rec))
	}
	respond.OK(c, gin.H{
		"items":      items,
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

func parseListQuery(c *gin.Context) (ListQuery, []map[string]string) {
	var (
		q       ListQuery
		details []map[string]string
	)
	bad := func(field, issue string) {
		details = append(details, map[string]string{"field": field, "issue": issue})
	}

	for _, f := range []struct {
		name string
		dest **int
	}{{"minScore", &q.MinScore}, {"maxScore", &q.MaxScore}} {
		if v := c.Query(f.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > 100 {
				bad(f.name, "must be an integer between 0 and 100")
				continue
			}
			*f.dest = &n
		}
	}
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			bad("from", "must be an RFC 3339 time or YYYY-MM-DD date")
		} else {
			q.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			bad("to", "must be an RFC 3339 time or YYYY-MM-DD date")
		} else {
			q.To = &t
		}
	}
	switch c.DefaultQuery("sort", "date") {
	case "date", "createdAt":
		q.Sort = SortByDate
	case "score", "overallScore":
		q.Sort = SortByScore
	default:
		bad("sort", "must be date or score")
	}
	switch c.DefaultQuery("order", "desc") {
	case "desc":
		q.Desc = true
	case "asc":
	default:
		bad("order", "must be asc or desc")
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	q.Search = c.Query("q")
	q.Cursor = c.Query("cursor")
	return q, details
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

func summaryOf(rec Record) gin.H {
	item := gin.H{
		"id":           rec.ID,
		"ownerId":      rec.OwnerID,
		"source":       rec.Source,
		"title":        rec.Title,
		"overallScore": rec.OverallScore,
		"grade":        rec.Grade,
		"isShared":     rec.IsShared,
		"createdAt":    rec.CreatedAt,
	}
	if rec.ScoreDelta != nil {
		item["scoreDelta"] = *rec.ScoreDelta
		item["trend"] = rec.Direction()
	}
	return item
}

func (h *Handler) getAnalysis(c *gin.Context) {
	rec, err := h.Svc.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch analysis")
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) deleteAnalysis(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete analysis")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getTrend(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "url is required", nil)
		return
	}
	trend, err := h.Svc.Trend(c.Request.Context(), callerFrom(c), url)
	if err != nil {
		writeError(c, err, "failed to load trend")
		return
	}
	respond.OK(c, trend)
}

func writeError(c *gin.Context, err error, fallback string) {
	var verr *acquire.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, verr.Code(), verr.Message, []map[string]string{{"field": verr.Field, "issue": verr.Message}})
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "you do not have permission to access this analysis", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
