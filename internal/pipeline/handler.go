package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/acquire"
	"readability-backend/internal/analyses"
	"readability-backend/internal/shared/server/middleware"
	"readability-backend/internal/shared/server/respond"
	"readability-backend/internal/shared/util"
)

// Handler exposes analysis runs over HTTP.
type Handler struct {
	Runs *Runs
}

// NewHandler constructs a Handler.
func NewHandler(runs *Runs) *Handler {
	return &Handler{Runs: runs}
}

// RegisterRoutes attaches run routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/readability/analyze/url", h.analyzeURL)
	rg.POST("/readability/analyze/upload", h.analyzeUpload)
	rg.POST("/readability/analyze/paste", h.analyzePaste)
	rg.GET("/readability/runs/:runId", h.getRun)
	rg.GET("/readability/runs/:runId/events", h.streamRun)
	rg.POST("/readability/runs/:runId/cancel", h.cancelRun)
	rg.DELETE("/readability/runs/:runId", h.resetRun)
}

type analyzeURLRequest struct {
	URL string `json:"url"`
}

type analyzePasteRequest struct {
	Text string `json:"text"`
}

func caller(c *gin.Context) analyses.Caller {
	return analyses.Caller{ID: middleware.UserIDFromContext(c), Role: middleware.UserRoleFromContext(c)}
}

// runContext keeps request values but outlives the request.
func runContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *Handler) analyzeURL(c *gin.Context) {
	var req analyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	h.start(c, func(ctx context.Context, o *Orchestrator) (string, error) {
		return o.AnalyzeURL(ctx, req.URL)
	})
}

func (h *Handler) analyzePaste(c *gin.Context) {
	var req analyzePasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	h.start(c, func(ctx context.Context, o *Orchestrator) (string, error) {
		return o.AnalyzePaste(ctx, req.Text)
	})
}

func (h *Handler) analyzeUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Invalid(c, "file is required", "file", "required")
		return
	}
	fileName, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Invalid(c, "invalid file name", "file", "invalid")
		return
	}
	if err := acquire.ValidateUpload(fileName, fileHeader.Size); err != nil {
		writeError(c, err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read upload", nil)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, acquire.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read upload", nil)
		return
	}
	h.start(c, func(ctx context.Context, o *Orchestrator) (string, error) {
		return o.AnalyzeUpload(ctx, fileName, content)
	})
}

func (h *Handler) start(c *gin.Context, analyze func(context.Context, *Orchestrator) (string, error)) {
	runID, err := h.Runs.Start(runContext(c), caller(c), analyze)
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetRunID(c, runID)
	respond.Accepted(c, gin.H{"runId": runID})
}

func (h *Handler) getRun(c *gin.Context) {
	o, err := h.Runs.Get(caller(c), c.Param("runId"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, o.Snapshot())
}

// streamRun sends snapshots as server-sent events until the run ends.
func (h *Handler) streamRun(c *gin.Context) {
	runID := c.Param("runId")
	o, err := h.Runs.Get(caller(c), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	events, stop := o.Subscribe()
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-events:
			if !ok {
				return false
			}
			if snap.RunID != runID {
				c.SSEvent("reset", snap)
				return false
			}
			if snap.State.Terminal() {
				c.SSEvent("done", snap)
				return false
			}
			c.SSEvent("progress", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) cancelRun(c *gin.Context) {
	o, err := h.Runs.Get(caller(c), c.Param("runId"))
	if err != nil {
		writeError(c, err)
		return
	}
	cancelled := o.Cancel()
	respond.Accepted(c, gin.H{"cancelled": cancelled, "state": o.Snapshot().State})
}

func (h *Handler) resetRun(c *gin.Context) {
	if err := h.Runs.Remove(caller(c), c.Param("runId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	var verr *acquire.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Invalid(c, verr.Message, verr.Field, verr.Message)
	case errors.Is(err, ErrRunNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
	case errors.Is(err, ErrBusy):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
	}
}
