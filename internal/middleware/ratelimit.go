package middleware

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket gating outbound calls to the upstream API.
// Capacity is the burst size and tokens refill at requestsPerMinute/60 per
// second. One instance is shared by every client handle.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter with the given steady rate and burst.
func NewRateLimiter(requestsPerMinute, burst int) (*RateLimiter, error) {
	if requestsPerMinute < 1 {
		return nil, errors.Errorf("requests per minute must be at least 1, got %d", requestsPerMinute)
	}
	if burst < 1 {
		return nil, errors.Errorf("burst must be at least 1, got %d", burst)
	}
	return newTokenBucket(rate.Limit(float64(requestsPerMinute)/60.0), burst), nil
}

// NoopRateLimiter returns a limiter whose Acquire never waits.
func NoopRateLimiter() *RateLimiter {
	return &RateLimiter{}
}

func newTokenBucket(perSecond rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(perSecond, burst)}
}

// Acquire blocks until one token is available. It never rejects work; the
// only error is the caller's context ending first.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}

	// rate.Limiter.Wait fails immediately when the bucket can never refill,
	// so a zero refill rate waits for cancellation instead.
	if rl.limiter.Limit() == 0 {
		if rl.limiter.Allow() {
			return nil
		}
		<-ctx.Done()
		return errors.Wrap(ctx.Err(), "wait for rate limit token")
	}

	if err := rl.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "wait for rate limit token")
		}
		// Wait also fails early when the deadline falls before the next
		// token; report that as the deadline the caller would have hit.
		return errors.Wrap(context.DeadlineExceeded, "wait for rate limit token")
	}
	return nil
}
