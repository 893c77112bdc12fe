package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// FieldIssue names one rejected input field.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Error sends a standardized error response. Client errors are logged at warn
// level and server errors at error level; the caller is on the matching
// http.request line, joined by request_id.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Invalid sends a 400 validation_error naming the offending field.
func Invalid(c *gin.Context, message, field, issue string) {
	Error(c, http.StatusBadRequest, "validation_error", message, []FieldIssue{{Field: field, Issue: issue}})
}
