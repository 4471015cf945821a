package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // open period before a trial call
	SuccessThreshold int           `json:"success_threshold"` // half-open successes needed to close

	// IsFailure decides which errors count against the breaker. Nil counts all.
	IsFailure func(error) bool `json:"-"`
	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(from, to CircuitBreakerState) `json:"-"`
}

// ErrCircuitOpen is returned by Call while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements a circuit breaker pattern for external service calls
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	successes   int
	nextAttempt time.Time
	probing     bool
}

// NewCircuitBreaker fills zero fields with 5 failures, 30s and 3 successes.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Call runs fn unless the breaker is open. In half-open state only one trial
// call is in flight at a time; concurrent callers get ErrCircuitOpen.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			return ErrCircuitOpen
		}
		transition = cb.setState(StateHalfOpen)
		cb.successes = 0
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	cb.probing = false
	failed := err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err))

	if failed {
		cb.failures++
		cb.successes = 0
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
			transition = cb.setState(StateOpen)
		}
		return
	}

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			transition = cb.setState(StateClosed)
		}
	}
}

// setState must be called with mu held. It returns the notification to run
// once the lock is released.
func (cb *CircuitBreaker) setState(to CircuitBreakerState) func() {
	from := cb.state
	cb.state = to
	if from == to || cb.config.OnStateChange == nil {
		return nil
	}
	hook := cb.config.OnStateChange
	return func() { hook(from, to) }
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	transition := cb.setState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.probing = false
	cb.mu.Unlock()
	if transition != nil {
		transition()
	}
}

// Stats reports state and failure count.
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"state":    cb.state.String(),
		"failures": cb.failures,
	}
}
