package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a lazily refilled token bucket keyed to the model
// provider's requests-per-minute budget. Tokens accrue as a function of
// elapsed time at acquisition, so there is no background goroutine to
// manage. Worker goroutines block in wait rather than hammering the
// provider.
type rateLimiter struct {
	lastRefill time.Time
	interval   time.Duration
	tokens     float64
	capacity   float64
	mu         sync.Mutex
}

// newRateLimiter creates a rate limiter for the given requests per minute.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	return &rateLimiter{
		tokens:     float64(requestsPerMinute),
		capacity:   float64(requestsPerMinute),
		interval:   time.Minute / time.Duration(requestsPerMinute),
		lastRefill: time.Now(),
	}
}

// wait blocks until a token is available or the context is canceled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		ok, retryIn := rl.tryAcquire()
		if ok {
			return nil
		}

		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// tryAcquire takes a token if one has accrued, otherwise reports how long
// until the next token exists.
func (rl *rateLimiter) tryAcquire() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed > 0 {
		rl.tokens += float64(elapsed) / float64(rl.interval)
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastRefill = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}

	retryIn := time.Duration((1 - rl.tokens) * float64(rl.interval))
	if retryIn <= 0 {
		retryIn = time.Millisecond
	}
	return false, retryIn
}
