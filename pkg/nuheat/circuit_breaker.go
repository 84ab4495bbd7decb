package nuheat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/logger"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without calling the API while the breaker rejects requests
var ErrCircuitOpen = errors.New("nuheat: API temporarily unavailable")

// CircuitBreakerConfig configures the circuit breaker behavior
type CircuitBreakerConfig struct {
	// MaxConsecutiveFailures is the number of consecutive failures before opening
	MaxConsecutiveFailures uint32
	// Timeout is how long the circuit breaker stays open before trying half-open
	Timeout time.Duration
	// Logger receives state transitions; optional
	Logger *logger.Logger
}

// DefaultCircuitBreakerConfig returns five failures and a 30 second open period
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxConsecutiveFailures: 5,
		Timeout:                30 * time.Second,
	}
}

// CircuitBreakerState represents the circuit breaker state
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerAPI wraps API with circuit breaker protection.
// The breaker rejects calls while open; it never retries.
type CircuitBreakerAPI struct {
	api     API
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration

	mu       sync.Mutex
	lastErr  error
	lastTime time.Time
}

// NewAPIWithCircuitBreaker wraps an API with circuit breaker protection
func NewAPIWithCircuitBreaker(api API, config CircuitBreakerConfig) *CircuitBreakerAPI {
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "NuHeatAPI",
		MaxRequests: 1,
		Interval:    config.Timeout,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxConsecutiveFailures
		},
		// A rejected token means the API is reachable
		IsSuccessful: func(err error) bool {
			return err == nil || IsAuthError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &CircuitBreakerAPI{
		api:     api,
		breaker: cb,
		timeout: config.Timeout,
	}
}

// guarded runs call through the breaker. Rejections while open or half-open
// never reach the API.
func guarded[T any](cb *CircuitBreakerAPI, call func() (T, error)) (T, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		var zero T
		return zero, cb.wrapError(err)
	}
	return result.(T), nil
}

// guardedCommand is guarded for calls that return only an error
func guardedCommand(cb *CircuitBreakerAPI, call func() error) error {
	_, err := guarded(cb, func() (struct{}, error) {
		return struct{}{}, call()
	})
	return err
}

// Thermostats implements API
func (cb *CircuitBreakerAPI) Thermostats(ctx context.Context) ([]ThermostatData, error) {
	return guarded(cb, func() ([]ThermostatData, error) { return cb.api.Thermostats(ctx) })
}

// Thermostat implements API
func (cb *CircuitBreakerAPI) Thermostat(ctx context.Context, serial string) (*ThermostatData, error) {
	return guarded(cb, func() (*ThermostatData, error) { return cb.api.Thermostat(ctx, serial) })
}

// Groups implements API
func (cb *CircuitBreakerAPI) Groups(ctx context.Context) ([]GroupData, error) {
	return guarded(cb, func() ([]GroupData, error) { return cb.api.Groups(ctx) })
}

// Account implements API
func (cb *CircuitBreakerAPI) Account(ctx context.Context) (*AccountData, error) {
	return guarded(cb, func() (*AccountData, error) { return cb.api.Account(ctx) })
}

// SetTemperature implements API
func (cb *CircuitBreakerAPI) SetTemperature(ctx context.Context, update TemperatureUpdate) error {
	return guardedCommand(cb, func() error { return cb.api.SetTemperature(ctx, update) })
}

// SetScheduleMode implements API
func (cb *CircuitBreakerAPI) SetScheduleMode(ctx context.Context, serial string, mode int) error {
	return guardedCommand(cb, func() error { return cb.api.SetScheduleMode(ctx, serial, mode) })
}

// SetGroupAway implements API
func (cb *CircuitBreakerAPI) SetGroupAway(ctx context.Context, groupID string, away bool) error {
	return guardedCommand(cb, func() error { return cb.api.SetGroupAway(ctx, groupID, away) })
}

// wrapError records the failure and converts breaker rejections to ErrCircuitOpen
func (cb *CircuitBreakerAPI) wrapError(err error) error {
	cb.mu.Lock()
	cb.lastErr = err
	cb.lastTime = time.Now()
	cb.mu.Unlock()

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return fmt.Errorf("%w: circuit breaker is open, retrying after %v", ErrCircuitOpen, cb.timeout)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit breaker is half-open, probing for recovery", ErrCircuitOpen)
	}
	return err
}

// State returns the current circuit breaker state
func (cb *CircuitBreakerAPI) State() CircuitBreakerState {
	switch cb.breaker.State() {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

// LastError returns the last error that occurred
func (cb *CircuitBreakerAPI) LastError() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastErr
}

// LastErrorTime returns when the last error occurred
func (cb *CircuitBreakerAPI) LastErrorTime() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastTime
}
