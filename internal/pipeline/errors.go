package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCancelled is the neutral outcome of a run stopped by its caller.
	ErrCancelled = errors.New("analysis cancelled")
	// ErrBusy is returned when an analysis is started while one is running.
	ErrBusy = errors.New("an analysis is already running")
	// ErrRunNotFound is returned for unknown runs and runs of other owners.
	ErrRunNotFound = errors.New("run not found")
)

// PersistenceError reports a failed quota enforcement or save. The computed
// result is discarded.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not save analysis: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Code is the stable machine code for API responses.
func (e *PersistenceError) Code() string { return "PERSISTENCE_ERROR" }

type coded interface {
	Code() string
}

const (
	codeCancelled = "CANCELLED"
	codeInternal  = "INTERNAL_ERROR"
)

func codeOf(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return codeCancelled
	}
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return codeInternal
}

const maxErrorLen = 500

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
