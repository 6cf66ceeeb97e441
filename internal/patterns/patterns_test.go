package patterns_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/patterns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := patterns.Backoff{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, 5*time.Second, b.Delay(3))
	assert.Equal(t, 5*time.Second, b.Delay(50))
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	b := patterns.Backoff{Initial: 10 * time.Second, Max: time.Minute, Multiplier: 2, Jitter: 0.2}

	for i := 0; i < 100; i++ {
		d := b.Delay(0)
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := patterns.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, patterns.Sleep(context.Background(), time.Millisecond))
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := patterns.NewBulkhead(1, "test", "patterns-test")

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	wg.Wait()
	assert.NoError(t, b.Execute(context.Background(), func() error { return nil }))
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := patterns.NewCircuitBreaker("test-circuit", "patterns-test")
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, patterns.ErrCircuitOpen)
	assert.Equal(t, 1, cb.GetStateValue())
	assert.Equal(t, "open", cb.GetState())
}
