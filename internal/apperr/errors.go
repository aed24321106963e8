// Package apperr defines the error taxonomy shared by the service layers and
// mapped to HTTP statuses by the API handlers.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("update conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMisconfigured = errors.New("misconfigured")
	ErrRateLimited   = errors.New("rate limited")

	// ErrUpstreamUnavailable marks a remote content store failure with no
	// degraded outcome.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Validation wraps a user-facing message as an ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UpstreamError is a failed call to the remote content store. Payload holds
// the decoded error body; an unparsable body is kept as an empty object.
type UpstreamError struct {
	Op      string
	Status  int
	Payload map[string]any
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
	if e.Status == 0 && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if id := e.ErrorID(); id != "" {
		msg += " (" + id + ")"
	}
	if m, ok := e.Payload["message"].(string); ok && m != "" {
		msg += ": " + m
	}
	return msg
}

// Unwrap maps the remote status onto the local taxonomy.
func (e *UpstreamError) Unwrap() []error {
	errs := []error{}
	switch {
	case e.Status == http.StatusConflict || e.ErrorID() == "VersionMismatch":
		errs = append(errs, ErrConflict)
	case e.Status == http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	default:
		errs = append(errs, ErrUpstreamUnavailable)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorID returns sys.id of the remote error body, if any.
func (e *UpstreamError) ErrorID() string {
	sys, ok := e.Payload["sys"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := sys["id"].(string)
	return id
}

// Diagnostic renders the payload for operators.
func (e *UpstreamError) Diagnostic() string {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// RateLimitedError reports a locked client and when it may retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %d seconds", RetryAfterSeconds(e.RetryAfter))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// RetryAfterSeconds rounds d up to whole seconds.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
