package noderefresh

import (
	"context"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/logging"
	"github.com/example/noderefresh-operator/pkg/metrics"
)

const (
	// ControllerName identifies this controller in logs and events.
	ControllerName = "noderefresh-controller"

	// DefaultMaxConcurrentReconciles bounds worker concurrency, matching
	// the suggested WorkerPoolSize of the environment contract.
	DefaultMaxConcurrentReconciles = WorkerPoolSize
)

// Reconciler reconciles a NodeRefresh object. It only actively drives work
// while status.phase is FindingNodes or ProcessingNode; every other phase
// is driven by the Scheduler (see scheduler.go), and the reconciler returns
// without writing status.
type Reconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Logger   *zap.Logger
	Recorder record.EventRecorder

	// MaxConcurrentReconciles bounds worker concurrency. Defaults to
	// DefaultMaxConcurrentReconciles; callers may override before calling
	// SetupWithManager.
	MaxConcurrentReconciles int

	gateway      Gateway
	drainer      *Drainer
	writer       *StatusWriter
	stateMachine *StateMachine
}

// NewReconciler wires a Reconciler against c, deriving its Gateway, Drainer,
// StatusWriter, and reconciler-owned phase handlers from it.
func NewReconciler(c client.Client, scheme *runtime.Scheme, logger *zap.Logger) *Reconciler {
	gw := NewGateway(c)
	drainer := NewDrainer(gw)
	writer := NewStatusWriter(gw)

	return &Reconciler{
		Client:                  c,
		Scheme:                  scheme,
		Logger:                  logger.Named(ControllerName),
		MaxConcurrentReconciles: DefaultMaxConcurrentReconciles,
		gateway:                 gw,
		drainer:                 drainer,
		writer:                  writer,
		stateMachine:            NewStateMachine(gw, drainer),
	}
}

// SetupWithManager registers the reconciler with mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Recorder == nil {
		r.Recorder = mgr.GetEventRecorderFor(ControllerName)
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.NodeRefresh{}).
		Owns(&corev1.Node{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: r.MaxConcurrentReconciles,
		}).
		Complete(r)
}

// +kubebuilder:rbac:groups=stable.example.com,resources=noderefreshes,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=stable.example.com,resources=noderefreshes/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=nodes,verbs=get;list;watch;patch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=pods/eviction,verbs=create

// Reconcile is part of the main Kubernetes reconciliation loop.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := time.Now()
	ctx = logging.WithRequestID(ctx)
	logger := logging.WithRequestIDField(ctx, r.Logger.With(
		zap.String("namespace", req.Namespace),
		zap.String("name", req.Name),
	))
	defer func() {
		metrics.ControllerReconcileDuration.WithLabelValues(ControllerName).Observe(time.Since(start).Seconds())
	}()

	nr := &v1alpha1.NodeRefresh{}
	if err := r.Get(ctx, req.NamespacedName, nr); err != nil {
		if client.IgnoreNotFound(err) == nil {
			logger.Debug("NodeRefresh not found, probably deleted")
			return ctrl.Result{}, nil
		}
		logger.Error("failed to get NodeRefresh", zap.Error(err))
		metrics.ControllerReconcileErrors.WithLabelValues(ControllerName, CategoryTransient.String()).Inc()
		return ctrl.Result{}, err
	}

	if !nr.DeletionTimestamp.IsZero() {
		return r.reconcileDelete(ctx, nr, logger)
	}

	if nr.Status.Phase == "" {
		return r.initializePhase(ctx, nr, logger)
	}

	original := nr.DeepCopy()
	outcome, engaged := r.stateMachine.Handle(ctx, nr, logger)
	if !engaged {
		logger.Debug("phase not owned by reconciler, yielding to scheduler tick",
			zap.String("phase", string(nr.Status.Phase)))
		return ctrl.Result{}, nil
	}

	if outcome.IsFailed() && r.Recorder != nil {
		r.Recorder.Eventf(nr, corev1.EventTypeWarning, "PhaseFailed", "%s", outcome.Reason())
	}

	nr.Status.ObservedGeneration = nr.Generation
	if err := r.gateway.PatchStatus(ctx, nr, original); err != nil {
		if CategoryOf(err) == CategoryTransient {
			logger.Info("status patch conflict or transient failure, requeueing", zap.Error(err))
			metrics.ControllerReconcileTotal.WithLabelValues(ControllerName, "retry").Inc()
			return ctrl.Result{RequeueAfter: RetryDelay}, nil
		}
		logger.Error("failed to persist status", zap.Error(err))
		metrics.ControllerReconcileErrors.WithLabelValues(ControllerName, CategoryOf(err).String()).Inc()
		return ctrl.Result{}, err
	}

	result := "done"
	if outcome.IsFailed() {
		result = "failed"
	}
	metrics.ControllerReconcileTotal.WithLabelValues(ControllerName, result).Inc()
	return outcome.ToResult()
}

// initializePhase sets the initial phase of a freshly-created NodeRefresh.
func (r *Reconciler) initializePhase(ctx context.Context, nr *v1alpha1.NodeRefresh, logger *zap.Logger) (ctrl.Result, error) {
	if err := r.writer.Patch(ctx, nr, func(nr *v1alpha1.NodeRefresh) {
		SetPhase(nr, v1alpha1.PhaseIdle, v1alpha1.ReasonScheduleDue, "NodeRefresh created")
	}); err != nil {
		if CategoryOf(err) == CategoryTransient {
			return ctrl.Result{Requeue: true}, nil
		}
		logger.Error("failed to initialize phase", zap.Error(err))
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

// reconcileDelete is a best-effort, race-prone observation: this operator
// adds no finalizer, so deletion usually completes before a reconcile can
// be dispatched. When the window is hit, it records the fact and does
// nothing further — no compensating uncordon is attempted (see the
// cancellation behavior in the design notes).
func (r *Reconciler) reconcileDelete(ctx context.Context, nr *v1alpha1.NodeRefresh, logger *zap.Logger) (ctrl.Result, error) {
	logger.Info("observed deletion of NodeRefresh", zap.String("name", nr.Name))

	if err := r.writer.Patch(ctx, nr, func(nr *v1alpha1.NodeRefresh) {
		SetExplicitCondition(nr, v1alpha1.NodeRefreshConditionType(v1alpha1.ReasonDeletionObserved), metav1.ConditionTrue, v1alpha1.ReasonDeletionObserved, "deletion timestamp observed")
	}); err != nil {
		logger.Debug("could not record deletion-observed condition, object likely already gone", zap.Error(err))
	}
	return ctrl.Result{}, nil
}
