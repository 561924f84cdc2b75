package resilience

import (
	"sync"
	"time"
)

const (
	// DefaultFailureThreshold is the consecutive-failure count that opens a
	// breaker.
	DefaultFailureThreshold = 5
	// DefaultResetTimeout is how long a breaker stays open before a trial
	// call is allowed.
	DefaultResetTimeout = 60 * time.Second
)

// BreakerState is the circuit breaker phase.
type BreakerState int

const (
	// StateClosed indicates normal operation.
	StateClosed BreakerState = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted.
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// StateChangeFunc is invoked after a breaker transitions between states. It is
// called outside the breaker lock.
type StateChangeFunc func(dependency string, from, to BreakerState)

// CircuitBreaker short-circuits calls to a persistently failing dependency.
// One instance is shared by every reconciliation worker calling the same
// dependency, so all state is serialized through a single mutex: the
// Allow check-and-transition and the failure-counter increment are compound
// operations that must not interleave.
type CircuitBreaker struct {
	mu sync.Mutex

	dependency       string
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
	onStateChange    StateChangeFunc

	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
}

// NewCircuitBreaker returns a closed breaker for the given dependency
// identity. Zero-valued options fall back to the defaults.
func NewCircuitBreaker(dependency string, opts BreakerOptions) *CircuitBreaker {
	cb := &CircuitBreaker{
		dependency:       dependency,
		failureThreshold: opts.FailureThreshold,
		resetTimeout:     opts.ResetTimeout,
		now:              opts.Clock,
		onStateChange:    opts.OnStateChange,
		state:            StateClosed,
	}
	if cb.failureThreshold <= 0 {
		cb.failureThreshold = DefaultFailureThreshold
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = DefaultResetTimeout
	}
	if cb.now == nil {
		cb.now = time.Now
	}
	return cb
}

// BreakerOptions configures circuit breakers created by a Registry.
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Defaults to DefaultFailureThreshold.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a
	// trial. Defaults to DefaultResetTimeout.
	ResetTimeout time.Duration
	// OnStateChange is invoked on every transition, outside the lock.
	OnStateChange StateChangeFunc
	// Clock overrides time.Now, used by tests.
	Clock func() time.Time
}

// Allow reports whether a call may proceed. In the open state it returns true
// only once the reset timeout has elapsed, transitioning to half-open as a
// side effect; there is exactly one such transition per reset window. In the
// half-open state exactly one trial call is admitted; concurrent callers
// receive false until RecordSuccess or RecordFailure settles the trial.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return true

	case StateOpen:
		if cb.now().Sub(cb.openedAt) > cb.resetTimeout {
			cb.setState(StateHalfOpen)
			cb.trialInFlight = true
			cb.unlockAndNotify(StateOpen, StateHalfOpen)
			return true
		}
		cb.mu.Unlock()
		return false

	case StateHalfOpen:
		if cb.trialInFlight {
			cb.mu.Unlock()
			return false
		}
		cb.trialInFlight = true
		cb.mu.Unlock()
		return true

	default:
		cb.mu.Unlock()
		return false
	}
}

// RecordSuccess observes a successful call. A half-open trial success closes
// the breaker and zeroes the failure counter; a success while closed also
// resets the counter so isolated failures never accumulate to the threshold.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	switch cb.state {
	case StateHalfOpen:
		cb.setState(StateClosed)
		cb.consecutiveFailures = 0
		cb.trialInFlight = false
		cb.unlockAndNotify(StateHalfOpen, StateClosed)

	case StateClosed:
		cb.consecutiveFailures = 0
		cb.mu.Unlock()

	default:
		cb.mu.Unlock()
	}
}

// RecordFailure observes a failed call. A half-open trial failure re-opens
// the breaker immediately; in the closed state the consecutive-failure
// counter opens the breaker once it reaches the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	cb.consecutiveFailures++

	switch cb.state {
	case StateHalfOpen:
		cb.setState(StateOpen)
		cb.openedAt = cb.now()
		cb.trialInFlight = false
		cb.unlockAndNotify(StateHalfOpen, StateOpen)

	case StateClosed:
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.setState(StateOpen)
			cb.openedAt = cb.now()
			cb.unlockAndNotify(StateClosed, StateOpen)
			return
		}
		cb.mu.Unlock()

	default:
		cb.mu.Unlock()
	}
}

// ReleaseTrial aborts an in-flight half-open trial whose outcome says nothing
// about the dependency's health, such as caller cancellation or a lost
// optimistic-concurrency race. The trial slot is freed so a later caller can
// probe again; the state and failure counter are untouched. Every admitted
// trial must settle through RecordSuccess, RecordFailure or ReleaseTrial,
// otherwise the breaker stays half-open and rejects all callers forever.
func (cb *CircuitBreaker) ReleaseTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}
}

// State returns the current phase.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// RemainingReset returns how long until an open breaker admits a trial call,
// or zero when the breaker is not open.
func (cb *CircuitBreaker) RemainingReset() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return 0
	}
	remaining := cb.resetTimeout - cb.now().Sub(cb.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (cb *CircuitBreaker) setState(s BreakerState) {
	cb.state = s
}

// unlockAndNotify releases the lock and then fires the state-change hook, so
// hooks may safely call back into the breaker.
func (cb *CircuitBreaker) unlockAndNotify(from, to BreakerState) {
	hook := cb.onStateChange
	dependency := cb.dependency
	cb.mu.Unlock()
	if hook != nil {
		hook(dependency, from, to)
	}
}

// Registry owns one circuit breaker per dependency identity. It replaces the
// package-level singletons the individual controllers used to hold: breaker
// state stays shared across concurrent reconciliations of the same dependency
// without any global state.
type Registry struct {
	mu       sync.Mutex
	opts     BreakerOptions
	breakers map[string]*CircuitBreaker
}

// NewRegistry returns an empty registry creating breakers with the given
// options.
func NewRegistry(opts BreakerOptions) *Registry {
	return &Registry{
		opts:     opts,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for the dependency identity, creating it closed on
// first use.
func (r *Registry) Get(dependency string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[dependency]
	if !ok {
		cb = NewCircuitBreaker(dependency, r.opts)
		r.breakers[dependency] = cb
	}
	return cb
}
