package resilience

import (
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
)

// maxConflictRetries bounds optimistic-concurrency retries. Conflicts stem
// from concurrent writers rather than dependency latency, so the bound is a
// small constant and the retries run back to back with no delay.
const maxConflictRetries = 3

// conflictBackoff retries immediately: losing an optimistic-concurrency race
// is resolved by re-reading, not by waiting.
var conflictBackoff = wait.Backoff{Steps: maxConflictRetries}

// RetryOnConflict resolves optimistic-concurrency write conflicts. On each
// attempt fn must re-fetch the current version of the shared resource,
// re-apply the intended mutation to the fresh copy and attempt the
// conditional write. Correctness rests on the store's compare-and-swap
// semantics; no client-side locking is needed.
//
// Exhausting the bound surfaces a TerminalError with CategoryWriteConflict so
// monitoring can tell "lost a race under load" apart from "dependency
// unavailable". Non-conflict errors from fn pass through unchanged.
func RetryOnConflict(fn func() error) error {
	attempts := 0
	err := retry.OnError(conflictBackoff, apierrors.IsConflict, func() error {
		attempts++
		return fn()
	})
	if err == nil {
		return nil
	}
	if apierrors.IsConflict(err) {
		return &TerminalError{
			Category: CategoryWriteConflict,
			Attempts: attempts,
			Cause:    err,
		}
	}
	return err
}
