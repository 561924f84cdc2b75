package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Total retries scheduled by the resilience core, labeled by error category
	RetriesScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_retries_scheduled_total",
			Help: "Total number of retries scheduled by the resilience core, labeled by error category",
		},
		[]string{"category"},
	)

	// Total terminal failures reported by the resilience core, labeled by error category
	TerminalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_terminal_failures_total",
			Help: "Total number of operations that terminated after exhausting retries or hitting a non-retryable error, labeled by error category",
		},
		[]string{"category"},
	)

	// Circuit breaker transitions, labeled by dependency and target state
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions, labeled by dependency and the state transitioned to",
		},
		[]string{"dependency", "state"},
	)

	// Current circuit breaker state per dependency (0=closed, 1=open, 2=half-open)
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_circuit_breaker_state",
			Help: "Current circuit breaker state per dependency (0=closed, 1=open, 2=half-open)",
		},
		[]string{"dependency"},
	)

	// Total optimistic-concurrency updates that exhausted the conflict retry bound
	ConflictExhaustions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resilience_conflict_retry_exhaustions_total",
			Help: "Total number of optimistic-concurrency updates that exhausted the conflict retry bound",
		},
	)
)

// RegisterMetrics registers all resilience metrics with the given Prometheus registry
func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(RetriesScheduled)
	registry.MustRegister(TerminalFailures)
	registry.MustRegister(BreakerTransitions)
	registry.MustRegister(BreakerState)
	registry.MustRegister(ConflictExhaustions)
}

// IncRetryScheduled increments the retry counter for an error category
func IncRetryScheduled(category string) {
	RetriesScheduled.WithLabelValues(category).Inc()
}

// IncTerminalFailure increments the terminal failure counter for an error category
func IncTerminalFailure(category string) {
	TerminalFailures.WithLabelValues(category).Inc()
}

// IncConflictExhaustion increments the conflict retry exhaustion counter
func IncConflictExhaustion() {
	ConflictExhaustions.Inc()
}

// ObserveBreakerTransition records a breaker transition and updates the state gauge
func ObserveBreakerTransition(dependency, state string, stateValue int) {
	BreakerTransitions.WithLabelValues(dependency, state).Inc()
	BreakerState.WithLabelValues(dependency).Set(float64(stateValue))
}
