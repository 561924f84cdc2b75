package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Classifier maps a raw failure to its category and retryability verdict.
// Controllers supply their own for domain-specific errors; decided == false
// defers to the default rules.
type Classifier func(err error) (category ErrorCategory, retryable bool, decided bool)

// Classify maps a raw failure into the error taxonomy. It is total and
// deterministic: every error yields exactly one category, and anything
// unmatched defaults to TransientDependency so unknown failures are retried
// but still capped by the max-attempt ceiling.
//
// Rules are checked in priority order: resource-vanished, cancellation,
// explicit markers, transient signals, configuration errors, authorization
// failures, write conflicts.
func Classify(err error) (ErrorCategory, bool) {
	// Resource vanished between read and write. Treated as successful
	// cleanup by callers, so not retryable.
	if apierrors.IsNotFound(err) || apierrors.IsGone(err) {
		return CategoryNotFound, false
	}

	// Classify has no context, so cancel-shaped errors are taken at face
	// value here. Execute cross-checks against ctx.Err() and downgrades a
	// dependency-side per-call timeout to TransientDependency.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryCancelled, false
	}

	if IsPermanent(err) {
		return CategoryPermanentConfiguration, false
	}
	if IsDegraded(err) {
		return CategoryDependencyDegraded, false
	}

	// Timeouts, rate limiting and 5xx-class dependency failures.
	if apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) ||
		apierrors.IsTooManyRequests(err) || apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) || apierrors.IsUnexpectedServerError(err) {
		return CategoryTransientDependency, true
	}
	if _, suggests := apierrors.SuggestsClientDelay(err); suggests {
		return CategoryTransientDependency, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransientDependency, true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, syscall.ENETUNREACH) {
		return CategoryTransientDependency, true
	}

	// Malformed spec, invalid policy, unknown field.
	if apierrors.IsInvalid(err) || apierrors.IsBadRequest(err) ||
		apierrors.IsMethodNotSupported(err) || apierrors.IsRequestEntityTooLargeError(err) {
		return CategoryPermanentConfiguration, false
	}

	// Credentials or permissions from an authentication boundary.
	if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
		return CategoryAuthorizationFailure, false
	}

	// Stale resource version. Retryable, but routed to RetryOnConflict
	// rather than the backoff scheduler.
	if apierrors.IsConflict(err) {
		return CategoryWriteConflict, true
	}

	// Unknown errors default to transient so legitimate transient failures
	// are not discarded; the attempt ceiling prevents infinite retries.
	return CategoryTransientDependency, true
}

// classifyWith runs the domain classifier first and falls back to the default
// rules for anything it does not decide.
func classifyWith(classifier Classifier, err error) (ErrorCategory, bool) {
	if classifier != nil {
		if category, retryable, decided := classifier(err); decided {
			return category, retryable
		}
	}
	return Classify(err)
}
