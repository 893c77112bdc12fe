package acquire

import "fmt"

// ValidationError reports input rejected before any I/O was performed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Code is the stable machine code for API responses.
func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FetchKind classifies a failed fetch.
type FetchKind string

const (
	FetchNotFound         FetchKind = "FETCH_NOT_FOUND"
	FetchAccessDenied     FetchKind = "FETCH_ACCESS_DENIED"
	FetchRateLimited      FetchKind = "FETCH_RATE_LIMITED"
	FetchAuthRequired     FetchKind = "FETCH_AUTH_REQUIRED"
	FetchUpstream         FetchKind = "FETCH_UPSTREAM"
	FetchTimeout          FetchKind = "FETCH_TIMEOUT"
	FetchBlocked          FetchKind = "FETCH_BLOCKED"
	FetchContentType      FetchKind = "FETCH_CONTENT_TYPE"
	FetchTooLarge         FetchKind = "FETCH_TOO_LARGE"
	FetchTooManyRedirects FetchKind = "FETCH_TOO_MANY_REDIRECTS"
	FetchEmpty            FetchKind = "FETCH_EMPTY"
	FetchNetwork          FetchKind = "FETCH_NETWORK"
)

// FetchError is a failed network fetch of a validated URL.
type FetchError struct {
	Kind   FetchKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchNotFound:
		return fmt.Sprintf("page not found at %q", e.URL)
	case FetchAccessDenied:
		return "access denied by the target server"
	case FetchRateLimited:
		return "the target server is rate limiting requests, try again later"
	case FetchAuthRequired:
		return "the page requires authentication"
	case FetchUpstream:
		return fmt.Sprintf("target server returned HTTP %d", e.Status)
	case FetchTimeout:
		return "request timed out"
	case FetchEmpty:
		return "the page returned very little content, it may require JavaScript to render"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Code is the stable machine code for API responses.
func (e *FetchError) Code() string {
	return string(e.Kind)
}

// statusError maps a non-2xx HTTP status to a FetchError.
func statusError(rawURL string, status int) *FetchError {
	kind := FetchUpstream
	switch status {
	case 404, 410:
		kind = FetchNotFound
	case 403:
		kind = FetchAccessDenied
	case 429:
		kind = FetchRateLimited
	case 401:
		kind = FetchAuthRequired
	}
	return &FetchError{Kind: kind, URL: rawURL, Status: status}
}
