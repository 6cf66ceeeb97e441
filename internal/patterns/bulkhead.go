package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/metrics"
)

// Bulkhead caps the number of concurrent calls into a dependency
type Bulkhead struct {
	semaphore chan struct{}
	name      string
	service   string
	wait      time.Duration
}

// NewBulkhead creates a new bulkhead with specified capacity
func NewBulkhead(size int, name, service string) *Bulkhead {
	if size < 1 {
		size = 1
	}
	return &Bulkhead{
		semaphore: make(chan struct{}, size),
		name:      name,
		service:   service,
		wait:      time.Second,
	}
}

// Execute runs fn within the bulkhead's resource limits. It waits at most
// one second for a slot, or less if ctx ends first.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	timer := time.NewTimer(b.wait)
	defer timer.Stop()

	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Inc()

		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Dec()
		}()

		return fn()

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: timeout acquiring resource", b.name)
	}
}

// GetName returns the bulkhead name
func (b *Bulkhead) GetName() string {
	return b.name
}
