package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitBreaker guards the external student database. After
// FailureThreshold consecutive outages every call fails fast with
// ErrCircuitOpen until OpenTimeout elapses; then calls are let through again
// (half-open) and SuccessThreshold answers in a row close it.
//
// Only outages count. Errors the source answers with (a missing table, a bad
// query) prove the database is reachable; IsFailure tells them apart.

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

// String returns the state name reported by /health.
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Execute is called while the CB is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunable parameters.
type CircuitBreakerConfig struct {
	Name             string        // used in logs
	FailureThreshold int           // consecutive outages to trip open (default: 5)
	SuccessThreshold int           // consecutive answers in half-open to close (default: 2)
	OpenTimeout      time.Duration // how long to stay open before probing (default: 30s)
	// IsFailure reports whether err means the dependency is down. nil counts
	// every error except a cancelled or expired caller context.
	IsFailure func(err error) bool
}

// DefaultCBConfig returns the student source defaults.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "student_source",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	state            CBState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	isFailure        func(error) bool
}

// NewCircuitBreaker creates a CB in Closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Name == "" {
		cfg.Name = "circuit_breaker"
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = isOutage
	}
	return &CircuitBreaker{
		name:             cfg.Name,
		state:            CBClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		openTimeout:      cfg.OpenTimeout,
		isFailure:        cfg.IsFailure,
	}
}

func isOutage(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// State returns the current CB state, moving open → half-open once the
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState must be called under lock.
func (cb *CircuitBreaker) currentState() CBState {
	if cb.state == CBOpen && time.Since(cb.lastFailureTime) >= cb.openTimeout {
		cb.state = CBHalfOpen
		cb.successCount = 0
		log.Info().Str("breaker", cb.name).Msg("circuit breaker half-open, probing")
	}
	return cb.state
}

// Execute runs fn unless the breaker is open. fn's error is returned as is;
// it counts against the breaker only when IsFailure says so, otherwise it is
// an answer from a reachable dependency.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch {
	case err == nil:
		cb.onSuccess()
	case cb.isFailure(err):
		cb.onFailure(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// caller gave up; says nothing about the dependency
	default:
		cb.onSuccess()
	}
	return err
}

// onFailure must be called under lock.
func (cb *CircuitBreaker) onFailure(err error) {
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CBClosed:
		if cb.failureCount >= cb.failureThreshold {
			cb.trip(err)
		}
	case CBHalfOpen:
		cb.trip(err)
	}
}

// trip must be called under lock.
func (cb *CircuitBreaker) trip(err error) {
	cb.state = CBOpen
	cb.successCount = 0
	log.Warn().Err(err).
		Str("breaker", cb.name).
		Int("failures", cb.failureCount).
		Dur("open_for", cb.openTimeout).
		Msg("circuit breaker opened")
}

// onSuccess must be called under lock.
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case CBClosed:
		cb.failureCount = 0
	case CBHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CBClosed
			cb.failureCount = 0
			cb.successCount = 0
			log.Info().Str("breaker", cb.name).Msg("circuit breaker closed")
		}
	}
}

// CBStats is a point-in-time view of the breaker for the health endpoint.
type CBStats struct {
	State       string     `json:"state"`
	Failures    int        `json:"failures"`
	LastFailure *time.Time `json:"lastFailure,omitempty"`
}

// Stats returns the current state and failure counters.
func (cb *CircuitBreaker) Stats() CBStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	stats := CBStats{State: cb.currentState().String(), Failures: cb.failureCount}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		stats.LastFailure = &t
	}
	return stats
}
