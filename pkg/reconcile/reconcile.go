// Package reconcile adapts resilience decisions to controller-runtime. It
// gives reconcilers a drop-in error handler: run a fallible operation, get
// back the ctrl.Result that schedules the requeue the resilience core
// computed, with logging and metrics recorded on the way.
package reconcile

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/jordigilh/kubernaut-sub024/pkg/metrics"
	"github.com/jordigilh/kubernaut-sub024/pkg/resilience"
)

// Handler runs reconciliation operations through a resilience core and maps
// the decisions to controller-runtime results. One Handler is shared by all
// workers of a controller.
type Handler struct {
	core *resilience.Core
	log  logr.Logger
}

// New creates a Handler, wiring breaker state transitions into the logger and
// the Prometheus metrics.
func New(log logr.Logger, opts resilience.Options) *Handler {
	opts.Log = log
	next := opts.Breaker.OnStateChange
	opts.Breaker.OnStateChange = func(dependency string, from, to resilience.BreakerState) {
		log.Info("circuit breaker state changed",
			"dependency", dependency, "from", from.String(), "to", to.String())
		metrics.ObserveBreakerTransition(dependency, to.String(), int(to))
		if next != nil {
			next(dependency, from, to)
		}
	}
	return &Handler{
		core: resilience.New(opts),
		log:  log,
	}
}

// Core exposes the underlying resilience core, for call sites that need the
// Decision itself (e.g. to record the cause in a status condition).
func (h *Handler) Core() *resilience.Core {
	return h.core
}

// Handle runs op guarded by the dependency's circuit breaker and returns the
// result for the reconciliation loop: empty on success, RequeueAfter for
// retries, and an empty result with the error logged for terminal failures so
// the controller does not hot-loop on an outcome retries cannot change.
func (h *Handler) Handle(ctx context.Context, dependency, operation string, op func(context.Context) error) (ctrl.Result, error) {
	decision := h.core.Execute(ctx, dependency, operation, op)
	return h.result(dependency, operation, decision)
}

func (h *Handler) result(dependency, operation string, d resilience.Decision) (ctrl.Result, error) {
	log := h.log.WithValues("dependency", dependency, "operation", operation)

	switch d.Outcome {
	case resilience.OutcomeSucceeded:
		if d.Category == resilience.CategoryNotFound {
			// Normal deletion race: recovered silently.
			log.Info("resource vanished during reconciliation, treating as completed cleanup")
		}
		if d.Degraded {
			log.Info("operation completed in degraded mode", "error", d.Cause)
		}
		return ctrl.Result{}, nil

	case resilience.OutcomeRetry:
		metrics.IncRetryScheduled(d.Category.String())
		log.Info("operation failed, requeueing",
			"category", d.Category.String(), "delay", d.Delay, "attempts", d.Attempts, "error", d.Cause)
		return ctrl.Result{RequeueAfter: d.Delay}, nil

	case resilience.OutcomeCancelled:
		log.Info("operation cancelled", "error", d.Cause)
		return ctrl.Result{}, d.Cause

	default:
		metrics.IncTerminalFailure(d.Category.String())
		log.Error(d.Err(), "operation failed terminally, not retrying",
			"category", d.Category.String(), "attempts", d.Attempts)
		return ctrl.Result{}, nil
	}
}

// UpdateWithConflictRetry re-fetches obj, re-applies mutate to the fresh copy
// and writes it back, retrying write conflicts within the conflict bound. The
// store's compare-and-swap on resourceVersion is the only synchronization.
func UpdateWithConflictRetry(ctx context.Context, c client.Client, obj client.Object, mutate func() error) error {
	key := client.ObjectKeyFromObject(obj)
	err := resilience.RetryOnConflict(func() error {
		if err := c.Get(ctx, key, obj); err != nil {
			return err
		}
		if err := mutate(); err != nil {
			return err
		}
		return c.Update(ctx, obj)
	})
	var terminal *resilience.TerminalError
	if errors.As(err, &terminal) && terminal.Category == resilience.CategoryWriteConflict {
		metrics.IncConflictExhaustion()
	}
	return err
}

// UpdateStatusWithConflictRetry is UpdateWithConflictRetry for the status
// subresource.
func UpdateStatusWithConflictRetry(ctx context.Context, c client.Client, obj client.Object, mutate func() error) error {
	key := client.ObjectKeyFromObject(obj)
	err := resilience.RetryOnConflict(func() error {
		if err := c.Get(ctx, key, obj); err != nil {
			return err
		}
		if err := mutate(); err != nil {
			return err
		}
		return c.Status().Update(ctx, obj)
	})
	var terminal *resilience.TerminalError
	if errors.As(err, &terminal) && terminal.Category == resilience.CategoryWriteConflict {
		metrics.IncConflictExhaustion()
	}
	return err
}
