// Package circuitbreaker wraps sony/gobreaker behind a small interface so
// callers trip, fast-fail and recover around a single flaky dependency
// without importing gobreaker types directly.
package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/sony/gobreaker"
)

// ErrOpen is returned by Execute while the breaker rejects calls, either
// because it is open or because the half-open trial slot is already taken.
var ErrOpen = errors.New("circuit breaker is open")

// State represents circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts represents circuit breaker statistics
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold uint32        // Consecutive failures to trigger open state
	OpenTimeout      time.Duration // Wait time before half-open retry
	MaxHalfOpenCalls uint32        // Max trial requests in half-open state
}

// Breaker guards calls to a single external dependency.
type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	logger  log.Logger
}

// New creates a circuit breaker for the named service. A zero
// MaxHalfOpenCalls allows exactly one trial request while half-open.
func New(name string, config Config, logger log.Logger) *Breaker {
	b := &Breaker{
		name:   name,
		logger: logger,
	}

	maxHalfOpen := config.MaxHalfOpenCalls
	if maxHalfOpen == 0 {
		maxHalfOpen = 1
	}

	settings := gobreaker.Settings{
		Name:        "service-" + name,
		MaxRequests: maxHalfOpen,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			b.handleStateChange(from, to)
		},
	}

	b.breaker = gobreaker.NewCircuitBreaker(settings)

	logger.Infof("Created circuit breaker for service: %s", name)

	return b
}

// Execute runs fn through the circuit breaker. Rejections surface as
// ErrOpen so callers can fast-fail with errors.Is.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	result, err := b.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			b.logger.Warnf("Circuit breaker [%s] is OPEN - request rejected immediately", b.name)
			return nil, fmt.Errorf("service %s is currently unavailable (circuit breaker open): %w", b.name, ErrOpen)
		}

		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.logger.Warnf("Circuit breaker [%s] is HALF-OPEN - too many test requests", b.name)
			return nil, fmt.Errorf("service %s is recovering (too many requests): %w", b.name, ErrOpen)
		}
	}

	return result, err
}

// State returns the current state.
func (b *Breaker) State() State {
	return convertGobreakerState(b.breaker.State())
}

// Counts returns the current statistics.
func (b *Breaker) Counts() Counts {
	counts := b.breaker.Counts()

	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// IsHealthy returns true only while the breaker is closed. Open and
// half-open both report unhealthy until a trial call succeeds.
func (b *Breaker) IsHealthy() bool {
	state := b.State()
	isHealthy := state == StateClosed
	b.logger.Debugf("IsHealthy check: service=%s, state=%s, isHealthy=%v", b.name, state, isHealthy)

	return isHealthy
}

// handleStateChange logs transitions at a severity matching the new state.
func (b *Breaker) handleStateChange(from gobreaker.State, to gobreaker.State) {
	b.logger.Warnf("Circuit breaker [%s] state changed: %s -> %s",
		b.name, from.String(), to.String())

	switch to {
	case gobreaker.StateOpen:
		b.logger.Errorf("Circuit breaker [%s] OPENED - service is unhealthy, requests will fast-fail", b.name)
	case gobreaker.StateHalfOpen:
		b.logger.Infof("Circuit breaker [%s] HALF-OPEN - testing service recovery", b.name)
	case gobreaker.StateClosed:
		b.logger.Infof("Circuit breaker [%s] CLOSED - service is healthy", b.name)
	}
}

// convertGobreakerState converts gobreaker.State to our State type
func convertGobreakerState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
