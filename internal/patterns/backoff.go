package patterns

import (
	"context"
	"math/rand"
	"time"
)

// Backoff is an exponential delay schedule with jitter and a cap
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the fraction of the delay randomized in either direction, 0..1.
	Jitter float64
}

// DefaultBackoff is the schedule used between failed status polls
var DefaultBackoff = Backoff{
	Initial:    3 * time.Second,
	Max:        30 * time.Second,
	Multiplier: 2,
	Jitter:     0.2,
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(b.Initial)
	for i := 0; i < attempt; i++ {
		d *= mult
		if b.Max > 0 && d >= float64(b.Max) {
			d = float64(b.Max)
			break
		}
	}

	if b.Jitter > 0 {
		j := b.Jitter
		if j > 1 {
			j = 1
		}
		d += d * j * (2*rand.Float64() - 1)
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
