package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// CircuitOpenError is the synthetic failure returned while a dependency's
// breaker is open: the underlying operation was never attempted.
type CircuitOpenError struct {
	Dependency string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for dependency %q", e.Dependency)
}

// RetryState tracks the failure history of one logical operation. It is
// created at the first failure, incremented on each subsequent failure and
// discarded on success or when the attempt ceiling is reached.
type RetryState struct {
	// Attempts is the number of failures observed so far.
	Attempts int
	// LastFailure is when the most recent failure was observed.
	LastFailure time.Time
	// LastCategory is the category of the most recent failure.
	LastCategory ErrorCategory
}

// Options configures a Core.
type Options struct {
	// Classifier decides domain-specific errors before the default rules.
	Classifier Classifier
	// Backoff overrides the default transient-retry schedule.
	Backoff *Backoff
	// Breaker configures the per-dependency circuit breakers.
	Breaker BreakerOptions
	// Log receives breaker transitions and terminal failures.
	Log logr.Logger
}

// Core is the resilience decision engine used once per fallible call site
// inside a reconciliation attempt. It owns the breaker registry and the
// per-operation retry state; the caller owns the actual I/O and surfaces
// each Decision's requeue delay to its scheduler.
//
// One Core is shared by all workers of a controller, so retry state access is
// mutex-guarded. The reconciliation framework is assumed to run at most one
// active reconciliation per resource key at a time.
type Core struct {
	classifier Classifier
	backoff    *Backoff
	breakers   *Registry
	log        logr.Logger

	mu     sync.Mutex
	states map[string]*RetryState
}

// New creates a Core with the given options.
func New(opts Options) *Core {
	backoff := opts.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}
	breakerOpts := opts.Breaker
	log := opts.Log
	if breakerOpts.OnStateChange == nil {
		breakerOpts.OnStateChange = func(dependency string, from, to BreakerState) {
			log.Info("circuit breaker state changed",
				"dependency", dependency, "from", from.String(), "to", to.String())
		}
	}
	return &Core{
		classifier: opts.Classifier,
		backoff:    backoff,
		breakers:   NewRegistry(breakerOpts),
		log:        log,
		states:     make(map[string]*RetryState),
	}
}

// Breaker returns the circuit breaker guarding the dependency, creating it on
// first use.
func (c *Core) Breaker(dependency string) *CircuitBreaker {
	return c.breakers.Get(dependency)
}

// Attempts returns the current failure count for the logical operation, zero
// if it has none recorded.
func (c *Core) Attempts(dependency, operation string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[stateKey(dependency, operation)]; ok {
		return state.Attempts
	}
	return 0
}

// Execute runs op guarded by the dependency's circuit breaker and returns the
// decision for the caller's reconciliation loop. It never sleeps: retry
// delays are returned for the caller to requeue.
func (c *Core) Execute(ctx context.Context, dependency, operation string, op func(context.Context) error) Decision {
	if err := ctx.Err(); err != nil {
		return cancelledDecision(err)
	}

	breaker := c.breakers.Get(dependency)
	if !breaker.Allow() {
		// Synthetic failure: protect the dependency from retry pressure and
		// requeue for when the reset window may admit a trial. Not counted
		// as an attempt, since the operation never ran.
		delay := breaker.RemainingReset()
		if delay <= 0 {
			delay = c.backoff.NextDelay(0)
		}
		attempts := c.Attempts(dependency, operation)
		return retryDecision(delay, CategoryTransientDependency, attempts, &CircuitOpenError{Dependency: dependency})
	}

	err := op(ctx)
	if err == nil {
		breaker.RecordSuccess()
		c.clearState(dependency, operation)
		return succeedDecision()
	}

	category, retryable := classifyWith(c.classifier, err)
	if category == CategoryCancelled && ctx.Err() == nil {
		// A cancel- or deadline-shaped error while the caller's context is
		// still live is a per-call timeout on the dependency side, not caller
		// intent. Retry it like any other transient failure.
		category, retryable = CategoryTransientDependency, true
	}
	switch category {
	case CategoryCancelled:
		// Caller intent, not dependency failure: no attempt or breaker
		// accounting. A half-open trial is released so the abandoned call
		// does not hold the trial slot forever.
		breaker.ReleaseTrial()
		return cancelledDecision(err)

	case CategoryNotFound:
		// The resource vanished mid-reconciliation. Successful cleanup.
		breaker.RecordSuccess()
		c.clearState(dependency, operation)
		return Decision{Outcome: OutcomeSucceeded, Category: CategoryNotFound, Cause: err}

	case CategoryDependencyDegraded:
		breaker.RecordSuccess()
		c.clearState(dependency, operation)
		return degradedDecision(err)

	case CategoryWriteConflict:
		// Conflicts resolve by re-reading, not waiting: requeue immediately,
		// but bounded like RetryOnConflict so an operation that always loses
		// the write race cannot hot-loop its worker. A lost race is not a
		// dependency failure, so the breaker only releases its trial slot.
		breaker.ReleaseTrial()
		state := c.bumpState(dependency, operation, category)
		if state.Attempts >= maxConflictRetries {
			c.clearState(dependency, operation)
			return failDecision(category, state.Attempts, err)
		}
		return retryDecision(0, category, state.Attempts, err)

	case CategoryPermanentConfiguration, CategoryAuthorizationFailure:
		// Retrying cannot change the outcome and would only delay visibility
		// of a problem needing human action. The dependency answered, so a
		// half-open trial settles as a success rather than wedging the slot.
		breaker.RecordSuccess()
		attempts := c.bumpState(dependency, operation, category).Attempts
		c.clearState(dependency, operation)
		return failDecision(category, attempts, err)

	default:
		if !retryable {
			// Terminal verdict from a domain classifier. The dependency
			// answered, so settle the breaker the same way.
			breaker.RecordSuccess()
			attempts := c.bumpState(dependency, operation, category).Attempts
			c.clearState(dependency, operation)
			return failDecision(category, attempts, err)
		}
		state := c.bumpState(dependency, operation, category)
		breaker.RecordFailure()

		attempt := state.Attempts - 1 // 0-based schedule index
		if c.backoff.Exhausted(attempt) {
			c.clearState(dependency, operation)
			return failDecision(category, state.Attempts, err)
		}
		return retryDecision(c.backoff.NextDelay(attempt), category, state.Attempts, err)
	}
}

func (c *Core) bumpState(dependency, operation string, category ErrorCategory) RetryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := stateKey(dependency, operation)
	state, ok := c.states[key]
	if !ok {
		state = &RetryState{}
		c.states[key] = state
	}
	state.Attempts++
	state.LastFailure = time.Now()
	state.LastCategory = category
	return *state
}

func (c *Core) clearState(dependency, operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, stateKey(dependency, operation))
}

func stateKey(dependency, operation string) string {
	return dependency + "/" + operation
}
