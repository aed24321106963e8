package apperr

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestUpstreamError_VersionMismatchIsConflict(t *testing.T) {
	err := &UpstreamError{
		Op:      "update entry",
		Status:  http.StatusConflict,
		Payload: map[string]any{"sys": map[string]any{"id": "VersionMismatch"}},
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("conflict must not read as upstream unavailable")
	}
}

func TestUpstreamError_ServerErrorIsUnavailable(t *testing.T) {
	cause := errors.New("boom")
	err := &UpstreamError{Op: "create upload", Status: http.StatusBadGateway, Payload: map[string]any{}, Err: cause}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should stay reachable")
	}
	if got := err.Diagnostic(); got != "{}" {
		t.Errorf("Diagnostic = %q, want {}", got)
	}
}

func TestUpstreamError_NotFound(t *testing.T) {
	err := &UpstreamError{Op: "get asset", Status: http.StatusNotFound}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRateLimitedError(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 2500 * time.Millisecond}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected ErrRateLimited")
	}
	if got := err.Error(); got != "too many attempts, retry in 3 seconds" {
		t.Errorf("message = %q", got)
	}
}

func TestValidation(t *testing.T) {
	err := Validation("title is required")
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected ErrValidation")
	}
	if err.Error() != "validation failed: title is required" {
		t.Errorf("message = %q", err.Error())
	}
}
