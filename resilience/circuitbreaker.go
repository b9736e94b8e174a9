// Package resilience provides retry, circuit breaking, and rate limiting
// primitives used to harden outbound calls to unreliable backends.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the lifecycle state of a CircuitBreaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned by Execute when the breaker is open and the
// wrapped call is rejected without being invoked.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements the classic closed/open/half-open state machine
// over consecutive failures of a protected call.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration

	state       State
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and attempts a half-open probe after resetTimeout has
// elapsed. A failureThreshold of 0 defaults to 5; a resetTimeout of 0
// defaults to 30s.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// State reports the current breaker state, lazily transitioning from Open to
// HalfOpen once resetTimeout has elapsed since the last failure.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to Closed and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}

// Execute runs fn if the breaker permits it, updating state from the
// outcome. When the breaker is open, fn is never invoked and ErrCircuitOpen
// is returned. The original error from fn is returned unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	cb.mu.Lock()
	state := cb.stateLocked()
	if state == StateOpen {
		cb.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	cb.mu.Unlock()

	result, err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
		}
		return result, err
	}

	cb.failures = 0
	cb.state = StateClosed
	return result, nil
}
