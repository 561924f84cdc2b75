package resilience

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the failure taxonomy used by the resilience core.
// Every failure a controller observes maps to exactly one category.
type ErrorCategory int

const (
	// CategoryNotFound means the reconciled resource vanished between read and
	// write. This is an expected deletion race, not a failure.
	CategoryNotFound ErrorCategory = iota
	// CategoryTransientDependency covers timeouts, rate limiting and 5xx-class
	// failures. Safe to retry with backoff.
	CategoryTransientDependency
	// CategoryPermanentConfiguration covers malformed input, invalid policy or
	// missing required fields. Retrying cannot help.
	CategoryPermanentConfiguration
	// CategoryAuthorizationFailure covers credential and permission failures.
	// Retrying cannot help without external remediation.
	CategoryAuthorizationFailure
	// CategoryWriteConflict is an optimistic-concurrency version mismatch on a
	// shared resource. Retried immediately, never with backoff.
	CategoryWriteConflict
	// CategoryDependencyDegraded marks a sub-operation failure the caller can
	// absorb with reduced confidence instead of failing outright.
	CategoryDependencyDegraded
	// CategoryCancelled reflects caller intent (context cancellation or
	// deadline). It never counts against retry attempts or breaker state.
	CategoryCancelled
)

// String returns the category name used in logs and metric labels.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNotFound:
		return "NotFound"
	case CategoryTransientDependency:
		return "TransientDependency"
	case CategoryPermanentConfiguration:
		return "PermanentConfiguration"
	case CategoryAuthorizationFailure:
		return "AuthorizationFailure"
	case CategoryWriteConflict:
		return "WriteConflict"
	case CategoryDependencyDegraded:
		return "DependencyDegraded"
	case CategoryCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrorCategory(%d)", int(c))
	}
}

// TerminalError reports a terminal outcome with the category, the attempt
// count at termination and the underlying cause, so callers can record all
// three when an operation gives up.
type TerminalError struct {
	Category ErrorCategory
	Attempts int
	Cause    error
}

func (e *TerminalError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s after %d attempts: %v", e.Category, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Cause)
}

func (e *TerminalError) Unwrap() error {
	return e.Cause
}

// permanentError marks a domain error as a configuration problem that retries
// cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.err)
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent wraps an error so Classify maps it to
// CategoryPermanentConfiguration regardless of its shape.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// degradedError marks a sub-operation failure the caller tolerates with
// reduced confidence.
type degradedError struct {
	err error
}

func (e *degradedError) Error() string {
	return fmt.Sprintf("degraded: %v", e.err)
}

func (e *degradedError) Unwrap() error {
	return e.err
}

// Degraded wraps an error so Classify maps it to CategoryDependencyDegraded.
// The operation is treated as successful but the result carries a degraded
// flag for confidence aggregation.
func Degraded(err error) error {
	if err == nil {
		return nil
	}
	return &degradedError{err: err}
}

// IsDegraded reports whether err was marked with Degraded.
func IsDegraded(err error) bool {
	var de *degradedError
	return errors.As(err, &de)
}
