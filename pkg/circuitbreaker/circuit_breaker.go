package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the state of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker implements the circuit breaker pattern for calls to
// collaborating stores and registries.
type CircuitBreaker struct {
	name             string
	maxFailures      uint32
	timeout          time.Duration
	halfOpenMaxCalls uint32

	mu              sync.Mutex
	state           State
	failures        uint32
	lastFailureTime time.Time
	halfOpenCalls   uint32
	successCount    uint32
	requestCount    uint32

	logger *logrus.Logger
}

// New creates a new circuit breaker
func New(name string, maxFailures uint32, timeout time.Duration) *CircuitBreaker {
	return NewWithLogger(name, maxFailures, timeout, logrus.New())
}

// NewWithLogger creates a new circuit breaker with a custom logger
func NewWithLogger(name string, maxFailures uint32, timeout time.Duration, logger *logrus.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		maxFailures:      maxFailures,
		timeout:          timeout,
		halfOpenMaxCalls: 3,
		state:            StateClosed,
		logger:           logger,
	}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allowRequest() {
		return &CircuitBreakerError{
			Name:  cb.name,
			State: cb.GetState(),
		}
	}

	cb.mu.Lock()
	cb.requestCount++
	cb.mu.Unlock()

	err := fn(ctx)
	if err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.shouldAttemptReset() {
			cb.toHalfOpen()
			return true
		}
		return false
	case StateHalfOpen:
		return cb.halfOpenCalls < cb.halfOpenMaxCalls
	default:
		return false
	}
}

// shouldAttemptReset checks if the open timeout has elapsed. Caller holds
// the lock.
func (cb *CircuitBreaker) shouldAttemptReset() bool {
	return time.Since(cb.lastFailureTime) >= cb.timeout
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.halfOpenCalls = 0
	cb.successCount = 0
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           "HALF_OPEN",
	}).Info("Circuit breaker transitioned to half-open")
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenCalls++
		cb.successCount++
		if cb.successCount >= cb.halfOpenMaxCalls {
			cb.reset()
			cb.logger.WithFields(logrus.Fields{
				"circuit_breaker": cb.name,
				"state":           "CLOSED",
			}).Info("Circuit breaker closed after successful recovery")
		}
	case StateClosed:
		cb.successCount++
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.maxFailures {
			cb.trip()
		}
	case StateHalfOpen:
		cb.trip()
	}
}

// trip transitions to the open state. Caller holds the lock.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"failures":        cb.failures,
		"state":           "OPEN",
	}).Warn("Circuit breaker opened due to failures")
}

// reset returns to the closed state. Caller holds the lock.
func (cb *CircuitBreaker) reset() {
	cb.state = StateClosed
	cb.failures = 0
	cb.successCount = 0
	cb.halfOpenCalls = 0
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.shouldAttemptReset() {
		cb.toHalfOpen()
	}
	return cb.state
}

// Stats represents circuit breaker statistics
type Stats struct {
	Name            string
	State           State
	Failures        uint32
	Requests        uint32
	Successes       uint32
	LastFailureTime time.Time
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:            cb.name,
		State:           cb.state,
		Failures:        cb.failures,
		Requests:        cb.requestCount,
		Successes:       cb.successCount,
		LastFailureTime: cb.lastFailureTime,
	}
}

// CircuitBreakerError represents an error when the circuit breaker is open
type CircuitBreakerError struct {
	Name  string
	State State
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is %s", e.Name, e.State)
}

// IsCircuitBreakerError checks if an error is a circuit breaker error
func IsCircuitBreakerError(err error) bool {
	_, ok := err.(*CircuitBreakerError)
	return ok
}
