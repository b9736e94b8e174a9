package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/lookatitude/simba/core"
)

// RetryPolicy configures exponential backoff retry behavior.
type RetryPolicy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	Jitter          bool
	RetryableErrors []core.ErrorCode
}

// DefaultRetryPolicy returns the package's baseline policy: 3 attempts,
// 500ms initial backoff doubling up to 30s, with jitter enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = def.BackoffFactor
	}
	return p
}

func (p RetryPolicy) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var cerr *core.Error
	if !errors.As(err, &cerr) {
		return false
	}
	for _, code := range p.RetryableErrors {
		if cerr.Code == code {
			return true
		}
	}
	return core.IsRetryable(err)
}

// Retry calls fn until it succeeds, a non-retryable error is returned,
// MaxAttempts is exhausted, or ctx is cancelled. Backoff grows by
// BackoffFactor each attempt, capped at MaxBackoff, with optional jitter.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalize()

	backoff := policy.InitialBackoff
	var zero T
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts || !policy.isRetryable(err) {
			return zero, lastErr
		}

		wait := backoff
		if policy.Jitter {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * policy.BackoffFactor)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return zero, lastErr
}
