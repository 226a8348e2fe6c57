package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(rl *rateLimiter) {
	for {
		ok, _ := rl.tryAcquire()
		if !ok {
			return
		}
	}
}

func TestRateLimiterAllowsBurstUpToCapacity(t *testing.T) {
	rl := newRateLimiter(10)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, rl.wait(ctx))
	}

	ok, retryIn := rl.tryAcquire()
	assert.False(t, ok)
	assert.Positive(t, retryIn)
}

func TestRateLimiterRefillsWithElapsedTime(t *testing.T) {
	rl := newRateLimiter(60)
	drain(rl)

	// Simulate two token intervals passing.
	rl.mu.Lock()
	rl.lastRefill = rl.lastRefill.Add(-2 * rl.interval)
	rl.mu.Unlock()

	ok, _ := rl.tryAcquire()
	assert.True(t, ok)
	ok, _ = rl.tryAcquire()
	assert.True(t, ok)
	ok, _ = rl.tryAcquire()
	assert.False(t, ok)
}

func TestRateLimiterRefillCapsAtCapacity(t *testing.T) {
	rl := newRateLimiter(5)
	drain(rl)

	rl.mu.Lock()
	rl.lastRefill = rl.lastRefill.Add(-time.Hour)
	rl.mu.Unlock()

	for i := 0; i < 5; i++ {
		ok, _ := rl.tryAcquire()
		assert.True(t, ok, "token %d", i)
	}
	ok, _ := rl.tryAcquire()
	assert.False(t, ok)
}

func TestRateLimiterWaitHonorsCancellation(t *testing.T) {
	rl := newRateLimiter(1)
	drain(rl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rl.wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiterDefaultsWhenUnconfigured(t *testing.T) {
	rl := newRateLimiter(0)
	assert.Equal(t, float64(60), rl.capacity)
	assert.Equal(t, time.Second, rl.interval)
}
