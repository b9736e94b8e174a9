package resilience

import (
	"context"
	"sync"
	"time"
)

// ProviderLimits bounds outbound request rate, token throughput, and
// concurrency toward a single upstream provider.
type ProviderLimits struct {
	RPM             int
	TPM             int
	MaxConcurrent   int
	CooldownOnRetry time.Duration
}

// RateLimiter is a token-bucket limiter over requests-per-minute,
// tokens-per-minute, and in-flight concurrency.
type RateLimiter struct {
	mu sync.Mutex

	limits ProviderLimits

	rpmTokens   float64
	rpmLastFill time.Time

	tpmTokens   float64
	tpmLastFill time.Time

	concurrent int
}

// NewRateLimiter creates a limiter from limits. Zero-valued fields disable
// the corresponding limit.
func NewRateLimiter(limits ProviderLimits) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		limits:      limits,
		rpmTokens:   float64(limits.RPM),
		rpmLastFill: now,
		tpmTokens:   float64(limits.TPM),
		tpmLastFill: now,
	}
}

func (rl *RateLimiter) refillRPM() {
	if rl.limits.RPM <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rl.rpmLastFill).Seconds()
	rl.rpmTokens += elapsed * (float64(rl.limits.RPM) / 60.0)
	if rl.rpmTokens > float64(rl.limits.RPM) {
		rl.rpmTokens = float64(rl.limits.RPM)
	}
	rl.rpmLastFill = now
}

func (rl *RateLimiter) refillTPM() {
	if rl.limits.TPM <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(rl.tpmLastFill).Seconds()
	rl.tpmTokens += elapsed * (float64(rl.limits.TPM) / 60.0)
	if rl.tpmTokens > float64(rl.limits.TPM) {
		rl.tpmTokens = float64(rl.limits.TPM)
	}
	rl.tpmLastFill = now
}

// Allow blocks until an RPM slot and a concurrency slot are both available,
// or ctx is done. Call Release once the in-flight request completes.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		rl.mu.Lock()
		rl.refillRPM()

		rpmOK := rl.limits.RPM <= 0 || rl.rpmTokens >= 1.0
		concOK := rl.limits.MaxConcurrent <= 0 || rl.concurrent < rl.limits.MaxConcurrent

		if rpmOK && concOK {
			if rl.limits.RPM > 0 {
				rl.rpmTokens -= 1.0
			}
			if rl.limits.MaxConcurrent > 0 {
				rl.concurrent++
			}
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release frees a concurrency slot acquired by Allow.
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.concurrent > 0 {
		rl.concurrent--
	}
}

// Wait pauses for CooldownOnRetry, or returns immediately if unset. It
// returns early with an error if ctx is cancelled during the wait.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limits.CooldownOnRetry <= 0 {
		return nil
	}
	timer := time.NewTimer(rl.limits.CooldownOnRetry)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ConsumeTokens blocks until count tokens are available in the TPM budget,
// or ctx is done. A zero TPM limit makes this a no-op.
func (rl *RateLimiter) ConsumeTokens(ctx context.Context, count int) error {
	if count <= 0 {
		return nil
	}
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		rl.mu.Lock()
		rl.refillTPM()
		if rl.limits.TPM <= 0 || rl.tpmTokens >= float64(count) {
			if rl.limits.TPM > 0 {
				rl.tpmTokens -= float64(count)
			}
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
