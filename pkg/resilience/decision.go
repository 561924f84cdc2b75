package resilience

import "time"

// Outcome is the caller-facing verdict of one guarded operation.
type Outcome int

const (
	// OutcomeSucceeded means the operation completed; the caller proceeds.
	OutcomeSucceeded Outcome = iota
	// OutcomeRetry means the caller should requeue the operation after Delay.
	OutcomeRetry
	// OutcomeFailed means the operation is terminal; Category, Attempts and
	// Cause carry the reporting structure.
	OutcomeFailed
	// OutcomeCancelled means the caller's context was cancelled. Cancellation
	// reflects caller intent, so it counts against neither the attempt
	// ceiling nor the breaker.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "Succeeded"
	case OutcomeRetry:
		return "Retry"
	case OutcomeFailed:
		return "Failed"
	case OutcomeCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Decision tells the reconciliation loop what to do next: return success,
// schedule a requeue after Delay, or terminate with a reported failure.
type Decision struct {
	Outcome  Outcome
	Delay    time.Duration
	Category ErrorCategory
	Attempts int
	// Degraded is set on a succeeded decision whose underlying operation
	// completed in degraded mode.
	Degraded bool
	Cause    error
}

// Err returns the terminal error for failed decisions and nil otherwise.
func (d Decision) Err() error {
	switch d.Outcome {
	case OutcomeFailed:
		return &TerminalError{Category: d.Category, Attempts: d.Attempts, Cause: d.Cause}
	case OutcomeCancelled:
		return d.Cause
	default:
		return nil
	}
}

func succeedDecision() Decision {
	return Decision{Outcome: OutcomeSucceeded}
}

func degradedDecision(cause error) Decision {
	return Decision{Outcome: OutcomeSucceeded, Category: CategoryDependencyDegraded, Degraded: true, Cause: cause}
}

func retryDecision(delay time.Duration, category ErrorCategory, attempts int, cause error) Decision {
	return Decision{Outcome: OutcomeRetry, Delay: delay, Category: category, Attempts: attempts, Cause: cause}
}

func failDecision(category ErrorCategory, attempts int, cause error) Decision {
	return Decision{Outcome: OutcomeFailed, Category: category, Attempts: attempts, Cause: cause}
}

func cancelledDecision(cause error) Decision {
	return Decision{Outcome: OutcomeCancelled, Category: CategoryCancelled, Cause: cause}
}
