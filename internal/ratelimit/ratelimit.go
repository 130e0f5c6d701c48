package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter spaces out successive requests to the shop.
type Limiter interface {
	Wait(ctx context.Context) error
}

// DelayLimiter enforces a minimum gap between actions, optionally with
// random jitter up to maxDelay. The first call never waits.
type DelayLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewDelayLimiter(minDelay, maxDelay time.Duration) *DelayLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &DelayLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *DelayLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastAction.IsZero() {
		elapsed := time.Since(r.lastAction)
		delay := r.calculateDelay()

		if elapsed < delay {
			timer := time.NewTimer(delay - elapsed)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	r.lastAction = time.Now()
	return nil
}

func (r *DelayLimiter) calculateDelay() time.Duration {
	if r.minDelay == r.maxDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	jitter := time.Duration(rand.Int63n(int64(delta)))
	return r.minDelay + jitter
}

// Unlimited never waits.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
