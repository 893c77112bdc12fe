package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"readability-backend/internal/shared/telemetry"
)

// RetryBaseDelay is the pause before the single retry.
var RetryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base  Client
	runID string
}

// WithRetry wraps base so transient failures are retried once. The retry
// stays inside the caller's deadline.
func WithRetry(base Client, runID string) Client {
	if base == nil {
		return nil
	}
	return retryingClient{base: base, runID: runID}
}

func (r retryingClient) ExtractPage(ctx context.Context, input ExtractInput) (json.RawMessage, error) {
	resp, err := r.base.ExtractPage(ctx, input)
	if err == nil || !ShouldRetry(err) || ctx.Err() != nil {
		return resp, err
	}

	telemetry.Info("llm.retry", map[string]any{
		"run_id":  r.runID,
		"model":   input.ModelKey,
		"attempt": 1,
		"error":   err.Error(),
	})
	select {
	case <-time.After(RetryBaseDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.base.ExtractPage(ctx, input)
}

// ShouldRetry reports whether err looks transient: rate limiting, a 5xx
// reply or a network failure.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof")
}
