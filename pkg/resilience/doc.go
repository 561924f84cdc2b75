// Package resilience provides the shared failure-handling core used by the
// reconciliation controllers: error classification, requeue-based backoff
// scheduling, per-dependency circuit breaking, optimistic-concurrency
// conflict retry and confidence-weighted aggregation of partial results.
//
// The package is a library, not a service. Controllers wrap each fallible
// call site in Core.Execute and act on the returned Decision: return success,
// requeue after the computed delay, or terminate with a reported failure.
// Nothing here blocks a worker for a backoff duration; waiting is always the
// caller's requeue.
//
// A single Core is instantiated per controller and shared by its workers.
// Circuit breaker state is keyed by dependency identity, so all concurrent
// reconciliations calling the same dependency share one breaker.
package resilience
