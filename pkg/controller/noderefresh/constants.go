package noderefresh

import "time"

// Environment-contract constants (see the external interfaces section of
// the design). Kept together since they are referenced across the
// scheduler, reconciler, and drain engine.
const (
	// RefreshTimerInterval is the scheduler tick period.
	RefreshTimerInterval = 300 * time.Second

	// RetryDelay is the base backoff unit for reconciler-level retries
	// (distinct from the drain engine's own adaptive backoff).
	RetryDelay = 30 * time.Second

	// MaxRetries is the retry budget of the environment contract. No code
	// in this package reads it; reconcile retries follow the requeue delay
	// each phase handler returns.
	MaxRetries = 5

	// WorkerPoolSize is the suggested cap on concurrently reconciling
	// objects.
	WorkerPoolSize = 5

	// DefaultOperatorNamespace is the OPERATOR_NAMESPACE fallback value. No
	// code in this package reads it; the controller Options apply their own
	// "default" fallback.
	DefaultOperatorNamespace = "default"
)
