package controller

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/controller/noderefresh"
	"github.com/example/noderefresh-operator/pkg/metrics"
)

// ControllerManager manages the lifecycle of the NodeRefresh controller, its
// periodic scheduler, and the health/metrics endpoints around them.
type ControllerManager struct {
	config        *rest.Config
	options       *Options
	mgr           ctrl.Manager
	healthChecker *HealthChecker
	logger        *zap.Logger
	scheme        *runtime.Scheme
	reconciler    *noderefresh.Reconciler
	scheduler     *noderefresh.Scheduler
}

// NewManager creates a new ControllerManager
func NewManager(config *rest.Config, opts *Options) (*ControllerManager, error) {
	if config == nil {
		return nil, fmt.Errorf("kubeconfig cannot be nil")
	}

	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger, err := newLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add core types to scheme: %w", err)
	}
	if err := policyv1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add policy types to scheme: %w", err)
	}
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add NodeRefresh CRD to scheme: %w", err)
	}

	mgr, err := ctrl.NewManager(config, ctrl.Options{
		Scheme: scheme,
		Cache: cache.Options{
			SyncPeriod: &opts.SyncPeriod,
		},
		Metrics: server.Options{
			BindAddress: opts.MetricsAddr,
		},
		HealthProbeBindAddress:  opts.HealthProbeAddr,
		LeaderElection:          opts.EnableLeaderElection,
		LeaderElectionID:        opts.LeaderElectionID,
		LeaderElectionNamespace: opts.LeaderElectionNamespace,
		Logger:                  zapr.NewLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	// Field indexer for pod's spec.nodeName: required for the drain engine to
	// list active pods on a node efficiently (see noderefresh/gateway.go).
	if err := mgr.GetFieldIndexer().IndexField(context.Background(), &corev1.Pod{}, "spec.nodeName", func(obj client.Object) []string {
		pod := obj.(*corev1.Pod)
		if pod.Spec.NodeName == "" {
			return nil
		}
		return []string{pod.Spec.NodeName}
	}); err != nil {
		return nil, fmt.Errorf("failed to add pod node name indexer: %w", err)
	}

	metrics.RegisterMetrics()

	healthChecker := NewHealthChecker(mgr.GetClient())

	reconciler := noderefresh.NewReconciler(mgr.GetClient(), scheme, logger)
	reconciler.MaxConcurrentReconciles = opts.MaxConcurrentReconciles
	scheduler := noderefresh.NewScheduler(mgr.GetClient(), noderefresh.NewStatusWriter(noderefresh.NewGateway(mgr.GetClient())), logger)

	cm := &ControllerManager{
		config:        config,
		options:       opts,
		mgr:           mgr,
		healthChecker: healthChecker,
		logger:        logger,
		scheme:        scheme,
		reconciler:    reconciler,
		scheduler:     scheduler,
	}

	if err := cm.setupHealthChecks(); err != nil {
		return nil, fmt.Errorf("failed to setup health checks: %w", err)
	}

	if err := cm.setupControllers(); err != nil {
		return nil, fmt.Errorf("failed to setup controllers: %w", err)
	}

	return cm, nil
}

// setupHealthChecks configures the health check endpoints
func (cm *ControllerManager) setupHealthChecks() error {
	if err := cm.mgr.AddHealthzCheck("healthz", cm.healthzCheck); err != nil {
		return fmt.Errorf("failed to add healthz check: %w", err)
	}

	if err := cm.mgr.AddReadyzCheck("readyz", cm.readyzCheck); err != nil {
		return fmt.Errorf("failed to add readyz check: %w", err)
	}

	if err := cm.mgr.AddHealthzCheck("ping", healthz.Ping); err != nil {
		return fmt.Errorf("failed to add ping check: %w", err)
	}

	if err := cm.mgr.AddReadyzCheck("apiserver", cm.apiServerCheck); err != nil {
		return fmt.Errorf("failed to add API server check: %w", err)
	}

	return nil
}

// setupControllers registers the NodeRefresh reconciler with the manager.
func (cm *ControllerManager) setupControllers() error {
	if err := cm.reconciler.SetupWithManager(cm.mgr); err != nil {
		return fmt.Errorf("failed to setup NodeRefresh controller: %w", err)
	}

	cm.logger.Info("successfully registered NodeRefresh controller")
	return nil
}

// healthzCheck implements the liveness probe
func (cm *ControllerManager) healthzCheck(req *http.Request) error {
	if !cm.healthChecker.IsHealthy() {
		lastErr := cm.healthChecker.LastError()
		if lastErr != nil {
			return fmt.Errorf("health check failed: %w", lastErr)
		}
		return fmt.Errorf("controller is not healthy")
	}
	return nil
}

// readyzCheck implements the readiness probe
func (cm *ControllerManager) readyzCheck(req *http.Request) error {
	if !cm.healthChecker.IsReady() {
		lastErr := cm.healthChecker.LastError()
		if lastErr != nil {
			return fmt.Errorf("readiness check failed: %w", lastErr)
		}
		return fmt.Errorf("controller is not ready")
	}
	return nil
}

// apiServerCheck verifies direct connectivity to the Kubernetes API server.
func (cm *ControllerManager) apiServerCheck(req *http.Request) error {
	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()

	nodes := &corev1.NodeList{}
	if err := cm.mgr.GetClient().List(ctx, nodes, client.Limit(1)); err != nil {
		return fmt.Errorf("API server not reachable: %w", err)
	}
	return nil
}

// Start starts the controller manager and blocks until the context is cancelled
func (cm *ControllerManager) Start(ctx context.Context) error {
	cm.logger.Info("starting noderefresh-operator",
		zap.String("version", os.Getenv("VERSION")),
		zap.String("commit", os.Getenv("COMMIT")),
		zap.Bool("leader_election", cm.options.EnableLeaderElection),
		zap.String("metrics_addr", cm.options.MetricsAddr),
		zap.String("health_addr", cm.options.HealthProbeAddr),
		zap.String("operator_namespace", cm.options.OperatorNamespace),
	)

	if err := cm.healthChecker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health checker: %w", err)
	}
	cm.logger.Info("health checks initialized successfully")

	go func() {
		<-cm.mgr.Elected()
		cm.logger.Info("leader elected, starting scheduler tick loop")
		if err := cm.scheduler.Start(ctx); err != nil {
			cm.logger.Error("scheduler stopped with error", zap.Error(err))
		}
	}()

	cm.logger.Info("starting controller-runtime manager")
	if err := cm.mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start manager: %w", err)
	}

	return nil
}

// GetManager returns the controller-runtime manager
func (cm *ControllerManager) GetManager() ctrl.Manager {
	return cm.mgr
}

// GetLogger returns the logger
func (cm *ControllerManager) GetLogger() *zap.Logger {
	return cm.logger
}

// GetHealthChecker returns the health checker
func (cm *ControllerManager) GetHealthChecker() *HealthChecker {
	return cm.healthChecker
}

// Shutdown gracefully shuts down the controller manager
func (cm *ControllerManager) Shutdown(ctx context.Context) error {
	cm.logger.Info("initiating graceful shutdown")

	cm.healthChecker.SetReady(false)

	shutdownDelay := 5 * time.Second
	cm.logger.Info("waiting before shutdown", zap.Duration("delay", shutdownDelay))

	select {
	case <-time.After(shutdownDelay):
	case <-ctx.Done():
		cm.logger.Warn("shutdown deadline exceeded during delay")
	}

	cm.logger.Info("shutdown complete")
	return nil
}

// newLogger creates a new zap logger based on options
func newLogger(opts *Options) (*zap.Logger, error) {
	var config zap.Config

	if opts.DevelopmentMode {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	switch opts.LogLevel {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if opts.LogFormat == "console" {
		config.Encoding = "console"
	} else {
		config.Encoding = "json"
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
