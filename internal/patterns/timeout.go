package patterns

import (
	"context"
	"time"
)

// WithTimeout derives a context with timeout for fail-fast behavior.
// A non-positive duration returns parent unchanged with a no-op cancel.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, duration)
}

// DefaultTimeout is the default timeout for backend requests
const DefaultTimeout = 10 * time.Second

// UploadTimeout is a longer timeout for multipart photo uploads
const UploadTimeout = 60 * time.Second

// DefaultPollTimeout bounds how long checkout waits for a payment
const DefaultPollTimeout = 15 * time.Minute
