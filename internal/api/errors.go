package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ashendes/neurophoto-storefront/internal/patterns"
)

// Error is a non-2xx reply from the backend
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: backend returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: backend returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsTransient reports whether retrying the same call later may succeed.
// Backend 5xx and 429 replies, an open breaker and transport failures are
// transient. Other 4xx replies and canceled contexts are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, patterns.ErrCircuitOpen) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError ||
			apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
