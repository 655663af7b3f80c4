package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rendis/drawsynth/pkg/schema"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, rejecting calls
	CircuitHalfOpen                     // Testing recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failed synthesis calls before opening the circuit.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`
	// Cooldown is how long the circuit stays open before transitioning to half-open.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
	// HalfOpenMax is the number of test requests allowed in half-open state.
	HalfOpenMax int `json:"half_open_max" yaml:"half_open_max"`
}

// DefaultCircuitBreakerConfig returns the default provider protection.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMax:      1,
	}
}

// UnmarshalJSON accepts the cooldown as a duration string ("30s") or nanoseconds.
func (c *CircuitBreakerConfig) UnmarshalJSON(data []byte) error {
	type plain CircuitBreakerConfig
	aux := struct {
		*plain
		Cooldown schema.Duration `json:"cooldown"`
	}{plain: (*plain)(c), Cooldown: schema.Duration(c.Cooldown)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Cooldown = time.Duration(aux.Cooldown)
	return nil
}

// CircuitBreaker stops calling a failing synthesis provider until it has had
// time to recover. It is shared by all runs of an Orchestrator.
type CircuitBreaker struct {
	mu                  sync.Mutex
	name                string
	state               CircuitState
	consecutiveFailures int
	lastFailureTime     time.Time
	halfOpenAttempts    int
	config              CircuitBreakerConfig
}

// NewCircuitBreaker creates a closed breaker for the named provider.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, state: CircuitClosed, config: config}
}

// AllowRequest returns nil if a call may proceed, or a CIRCUIT_OPEN error.
func (b *CircuitBreaker) AllowRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if time.Since(b.lastFailureTime) >= b.config.Cooldown {
			b.state = CircuitHalfOpen
			b.halfOpenAttempts = 1 // this request counts as the first test request
			return nil
		}
		return schema.NewErrorf(schema.ErrCodeCircuitOpen,
			"synthesis provider %q is unavailable after %d consecutive failures",
			b.name, b.consecutiveFailures).
			WithDetails(map[string]any{
				"provider":             b.name,
				"consecutive_failures": b.consecutiveFailures,
				"state":                b.state.String(),
				"cooldown_remaining":   (b.config.Cooldown - time.Since(b.lastFailureTime)).String(),
			})

	case CircuitHalfOpen:
		if b.halfOpenAttempts >= b.config.HalfOpenMax {
			return schema.NewErrorf(schema.ErrCodeCircuitOpen,
				"synthesis provider %q is recovering: max test requests reached", b.name)
		}
		b.halfOpenAttempts++
	}
	return nil
}

// RecordSuccess closes the circuit.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.halfOpenAttempts = 0
	b.state = CircuitClosed
}

// Release returns a half-open test slot when the call ended without telling
// anything about the provider, e.g. because the caller gave up.
func (b *CircuitBreaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen && b.halfOpenAttempts > 0 {
		b.halfOpenAttempts--
	}
}

// RecordFailure counts a failed call and returns the new state.
func (b *CircuitBreaker) RecordFailure() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailureTime = time.Now()

	// Any failure in half-open reopens the circuit.
	if b.state == CircuitHalfOpen || b.consecutiveFailures >= b.config.FailureThreshold {
		b.state = CircuitOpen
	}
	return b.state
}

// State returns the current state, moving open to half-open once the cooldown has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen && time.Since(b.lastFailureTime) >= b.config.Cooldown {
		b.state = CircuitHalfOpen
		b.halfOpenAttempts = 0
	}
	return b.state
}

// Stats returns diagnostic information about the breaker.
func (b *CircuitBreaker) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]any{
		"provider":             b.name,
		"state":                b.state.String(),
		"consecutive_failures": b.consecutiveFailures,
		"failure_threshold":    b.config.FailureThreshold,
		"cooldown":             b.config.Cooldown.String(),
	}
}
