package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	// Namespace is the metrics namespace for this operator.
	Namespace = "noderefresh_operator"
)

var (
	// ReconcilePhaseGauge tracks the number of NodeRefresh objects
	// currently observed in each phase.
	ReconcilePhaseGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "noderefresh_phase",
			Help:      "Number of NodeRefresh objects in each phase",
		},
		[]string{"phase", "namespace"},
	)

	// ControllerReconcileDuration tracks the time taken by a reconcile call.
	ControllerReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "controller_reconcile_duration_seconds",
			Help:      "Time taken by controller reconciliation",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"controller"},
	)

	// ControllerReconcileErrors tracks reconcile errors by category.
	ControllerReconcileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "controller_reconcile_errors_total",
			Help:      "Total number of controller reconciliation errors",
		},
		[]string{"controller", "category"},
	)

	// ControllerReconcileTotal tracks reconciliations by outcome.
	ControllerReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "controller_reconcile_total",
			Help:      "Total number of controller reconciliations",
		},
		[]string{"controller", "result"},
	)

	// DrainAttemptsTotal tracks eviction-loop attempts made by the drain
	// engine, one increment per attempt within DrainNode.
	DrainAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "drain_attempts_total",
			Help:      "Total number of drain-loop attempts",
		},
		[]string{"node"},
	)

	// PodEvictionsTotal tracks individual eviction outcomes.
	PodEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pod_evictions_total",
			Help:      "Total number of pod eviction attempts by outcome",
		},
		[]string{"outcome"},
	)

	// DrainDuration tracks how long a full node drain took end to end.
	DrainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "drain_duration_seconds",
			Help:      "Time taken to fully drain a node",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
		},
		[]string{"result"},
	)

	// DrainsTotal tracks completed drains by terminal result.
	DrainsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "drains_total",
			Help:      "Total number of completed node drains",
		},
		[]string{"result"},
	)

	// CooldownRemainingSeconds tracks the remaining cooldown for objects
	// currently in WaitingCooldown.
	CooldownRemainingSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cooldown_remaining_seconds",
			Help:      "Seconds remaining before a WaitingCooldown object returns to Idle",
		},
		[]string{"noderefresh"},
	)

	// SchedulerTicksTotal tracks scheduler ticks by whether they changed
	// an object's status.
	SchedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Total number of scheduler ticks evaluated",
		},
		[]string{"changed"},
	)

	// AuditEventsTotal counts audit events by type, category, and severity.
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "audit_events_total",
			Help:      "Total number of audit events recorded",
		},
		[]string{"event_type", "category", "severity"},
	)
)

// RegisterMetrics registers all metrics with the controller-runtime metrics
// registry.
func RegisterMetrics() {
	metrics.Registry.MustRegister(
		ReconcilePhaseGauge,
		ControllerReconcileDuration,
		ControllerReconcileErrors,
		ControllerReconcileTotal,
		DrainAttemptsTotal,
		PodEvictionsTotal,
		DrainDuration,
		DrainsTotal,
		CooldownRemainingSeconds,
		SchedulerTicksTotal,
		AuditEventsTotal,
	)
}

// ResetMetrics resets all metrics; useful for test isolation.
func ResetMetrics() {
	ReconcilePhaseGauge.Reset()
	ControllerReconcileDuration.Reset()
	ControllerReconcileErrors.Reset()
	ControllerReconcileTotal.Reset()
	DrainAttemptsTotal.Reset()
	PodEvictionsTotal.Reset()
	DrainDuration.Reset()
	DrainsTotal.Reset()
	CooldownRemainingSeconds.Reset()
	SchedulerTicksTotal.Reset()
	AuditEventsTotal.Reset()
}
