package llm

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState is the breaker's position.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset window elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single recovery probe through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds the breaker's tuning knobs.
type CircuitBreakerConfig struct {
	// Threshold is the consecutive-failure count that opens the circuit.
	Threshold int
	// ResetAfter is how long an open circuit rejects calls before a
	// probe is let through.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns the default tuning.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker stops issuing calls to a provider that keeps failing.
// After Threshold consecutive failures the circuit opens and calls fail
// immediately. Once ResetAfter has passed, a single probe call is admitted
// and its outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	mu sync.RWMutex

	threshold  int
	resetAfter time.Duration

	state            CircuitState
	consecutiveFails int
	lastFailure      time.Time
}

// NewCircuitBreaker creates a closed breaker with the given tuning.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
	}
}

// Allow reports whether a call may proceed. A nil return means go ahead;
// otherwise the error says why the call was rejected. Allow moves an
// expired open circuit to half-open and admits the probe itself.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		return fmt.Errorf("llm circuit open: %d consecutive failures, last %s ago",
			cb.consecutiveFails, time.Since(cb.lastFailure).Round(time.Second))
	case CircuitHalfOpen:
		return fmt.Errorf("llm circuit half-open: recovery probe in flight")
	default:
		return nil
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure counts one failure. A failed half-open probe re-opens the
// circuit immediately; in the closed state the circuit opens once the
// threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the breaker's current position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveFails
}
