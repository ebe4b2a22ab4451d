// Package resilience provides circuit breaker and provider failover primitives.
//
// The interview server talks to external LLM, ASR and TTS backends that can
// and do go away mid-session. [CircuitBreaker] is a three-state breaker
// (closed, open, half-open) that stops hammering a dead backend, and
// [FallbackGroup] composes several providers of one kind with a breaker per
// entry so a tripped primary is bypassed in favour of the next backend in the
// chain.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is in
// the open state and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal operating state; all calls are forwarded.
	StateClosed State = iota

	// StateOpen means the breaker has tripped. Calls fail fast with
	// [ErrCircuitOpen] until the reset timeout elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the reset timeout. A
	// limited number of calls go through; success closes the breaker,
	// failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name is a human-readable backend label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the maximum number of probe calls allowed in the half-open
	// state before the breaker decides whether to close or re-open. Default: 3.
	HalfOpenMax int
}

// CircuitBreaker implements the three-state circuit breaker pattern.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu         sync.Mutex
	state      State
	failures   int       // consecutive failures while closed
	lastTrip   time.Time // when the most recent failure was recorded
	probes     int       // calls admitted in the current half-open phase
	probeFails int
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied configuration.
// Zero-value config fields are replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// Execute runs fn if the breaker admits the call. In the open state it returns
// [ErrCircuitOpen] without calling fn; in the half-open state only
// HalfOpenMax probe calls are admitted.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn()
	cb.settle(probing, err)
	return err
}

// admit decides whether a call may proceed, handling the open-to-half-open
// transition. It reports whether the admitted call counts as a probe.
func (cb *CircuitBreaker) admit() (probing bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastTrip) < cb.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeFails = 0
		slog.Info("circuit breaker transitioning to half-open", "name", cb.cfg.Name)

	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMax {
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, nil
	}
	return false, nil
}

// settle applies the call outcome to the breaker state.
func (cb *CircuitBreaker) settle(probing bool, callErr error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr == nil {
		if !probing {
			cb.failures = 0
			return
		}
		if cb.probes-cb.probeFails >= cb.cfg.HalfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.probeFails = 0
			slog.Info("circuit breaker closed after successful probes", "name", cb.cfg.Name)
		}
		return
	}

	cb.lastTrip = time.Now()
	if probing {
		// One bad probe is enough; back to open for a full timeout.
		cb.probeFails++
		cb.state = StateOpen
		cb.failures = cb.cfg.MaxFailures
		slog.Warn("circuit breaker re-opened from half-open", "name", cb.cfg.Name)
		return
	}

	cb.failures++
	if cb.failures >= cb.cfg.MaxFailures {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.cfg.Name,
			"consecutive_failures", cb.failures)
	}
}

// State returns the current [State] of the breaker. An open breaker whose
// reset timeout has elapsed reports [StateHalfOpen]; the stored state changes
// on the next [Execute] call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastTrip) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed], clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.probeFails = 0
	slog.Info("circuit breaker manually reset", "name", cb.cfg.Name)
}
