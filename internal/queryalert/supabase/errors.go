package supabase

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrAuthentication is returned for 401 and 403 responses.
	ErrAuthentication = errors.New("supabase: authentication failed")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("supabase: not found")
	// ErrInvalidParams wraps request validation failures. Nothing is sent.
	ErrInvalidParams = errors.New("supabase: invalid parameters")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("supabase: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps the status onto the package sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// RateLimitError is returned once 429 retries are exhausted.
// RetryAfter carries the server's last Retry-After hint, zero if none was sent.
type RateLimitError struct {
	RetryAfter time.Duration
	Attempts   int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("supabase: rate limit exceeded after %d attempts (retry after %s)", e.Attempts, e.RetryAfter)
	}
	return fmt.Sprintf("supabase: rate limit exceeded after %d attempts", e.Attempts)
}

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
