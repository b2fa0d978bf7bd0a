package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/audit"
	"github.com/example/noderefresh-operator/pkg/controller"
)

// Version, Commit, and BuildDate are set at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// scheme is shared by the CLI and the manager it hands off to.
var scheme = runtime.NewScheme()

func init() {
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to add core types to scheme: %v", err))
	}
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to add NodeRefresh CRD to scheme: %v", err))
	}
}

// gracefulShutdownTimeout bounds how long Shutdown is given to drain after
// the manager's Start returns.
const gracefulShutdownTimeout = 10 * time.Second

func main() {
	os.Setenv("VERSION", Version)
	os.Setenv("COMMIT", Commit)
	os.Setenv("BUILD_DATE", BuildDate)

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the noderefresh-operator CLI.
func newRootCommand() *cobra.Command {
	opts := controller.NewDefaultOptions()

	cmd := &cobra.Command{
		Use:          "noderefresh-operator",
		Short:        "NodeRefresh operator: scheduled, one-at-a-time node drain automation for Kubernetes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyEnvOverrides(cmd, opts)
			return run(cmd.Context(), opts)
		},
	}

	addFlags(cmd, opts)
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// newVersionCommand prints build information and exits.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("noderefresh-operator %s (commit %s, built %s)\n", Version, Commit, BuildDate)
			return nil
		},
	}
}

// addFlags binds cmd's flags onto opts.
func addFlags(cmd *cobra.Command, opts *controller.Options) {
	flags := cmd.Flags()

	flags.StringVar(&opts.Kubeconfig, "kubeconfig", opts.Kubeconfig, "path to the kubeconfig file; empty uses in-cluster configuration")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "address the metrics endpoint binds to")
	flags.StringVar(&opts.HealthProbeAddr, "health-addr", opts.HealthProbeAddr, "address the health probe endpoint binds to")
	flags.BoolVar(&opts.EnableLeaderElection, "leader-election", opts.EnableLeaderElection, "enable leader election for the controller manager")
	flags.StringVar(&opts.LeaderElectionID, "leader-election-id", opts.LeaderElectionID, "name of the resource leader election uses")
	flags.StringVar(&opts.LeaderElectionNamespace, "leader-election-namespace", opts.LeaderElectionNamespace, "namespace for the leader election resource")
	flags.DurationVar(&opts.SyncPeriod, "sync-period", opts.SyncPeriod, "period for periodic resync of all watched objects")
	flags.StringVar(&opts.OperatorNamespace, "operator-namespace", opts.OperatorNamespace, "namespace the operator's own pod runs in")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log verbosity (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "log format (json, console)")
	flags.BoolVar(&opts.DevelopmentMode, "development", opts.DevelopmentMode, "enable development mode logging")
	flags.IntVar(&opts.MaxConcurrentReconciles, "max-concurrent-reconciles", opts.MaxConcurrentReconciles, "maximum number of concurrent NodeRefresh reconciles")
}

// applyEnvOverrides lets NODEREFRESH_-prefixed environment variables win
// over a flag left at its default, e.g. NODEREFRESH_OPERATOR_NAMESPACE. The
// operator namespace also falls back to the unprefixed OPERATOR_NAMESPACE.
func applyEnvOverrides(cmd *cobra.Command, opts *controller.Options) {
	v := viper.New()
	v.SetEnvPrefix("noderefresh")
	v.AutomaticEnv()

	flags := cmd.Flags()
	overrides := []struct {
		flag string
		dest *string
	}{
		{"kubeconfig", &opts.Kubeconfig},
		{"metrics-addr", &opts.MetricsAddr},
		{"health-addr", &opts.HealthProbeAddr},
		{"leader-election-id", &opts.LeaderElectionID},
		{"leader-election-namespace", &opts.LeaderElectionNamespace},
		{"operator-namespace", &opts.OperatorNamespace},
		{"log-level", &opts.LogLevel},
		{"log-format", &opts.LogFormat},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			continue
		}
		key := strings.ReplaceAll(o.flag, "-", "_")
		if val := v.GetString(key); val != "" {
			*o.dest = val
		}
	}

	if !flags.Changed("operator-namespace") && v.GetString("operator_namespace") == "" {
		if ns := os.Getenv("OPERATOR_NAMESPACE"); ns != "" {
			opts.OperatorNamespace = ns
		}
	}
}

// run validates opts, builds a Kubernetes client config, and starts the
// controller manager until an interrupt or SIGTERM is received.
func run(ctx context.Context, opts *controller.Options) error {
	if err := opts.Complete(); err != nil {
		return fmt.Errorf("failed to complete options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	bootLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create bootstrap logger: %w", err)
	}
	bootLogger = configureLogLevel(bootLogger, opts.LogLevel)
	defer bootLogger.Sync() //nolint:errcheck
	bootLogger.Info("resolving kubernetes client config", zap.String("kubeconfig", getKubeconfigPath(opts.Kubeconfig)))

	audit.SetGlobalAuditLogger(audit.NewAuditLogger(&audit.AuditLoggerConfig{
		Enabled:      true,
		Logger:       bootLogger,
		DefaultActor: "noderefresh-operator",
	}))

	config, err := buildKubeConfig(opts.Kubeconfig)
	if err != nil {
		return err
	}

	mgr, err := controller.NewManager(config, opts)
	if err != nil {
		return fmt.Errorf("failed to create controller manager: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(sigCtx); err != nil {
		return fmt.Errorf("controller manager exited with error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	return mgr.Shutdown(shutdownCtx)
}

// getKubeconfigPath returns a human-readable description of the kubeconfig
// source: the path itself, or "in-cluster" when none was given.
func getKubeconfigPath(kubeconfig string) string {
	if kubeconfig == "" {
		return "in-cluster"
	}
	return kubeconfig
}

// buildKubeConfig resolves a *rest.Config from an explicit kubeconfig path,
// falling back to in-cluster configuration when kubeconfig is empty.
func buildKubeConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
		return config, nil
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
	}
	return config, nil
}

// configureLogLevel returns logger with its minimum level raised to match
// level; unrecognized levels default to info. zap.IncreaseLevel cannot
// lower a level, so a level below the logger's own (debug on a production
// logger) leaves the logger unchanged and zap reports the failed call on its
// error output.
func configureLogLevel(logger *zap.Logger, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}
	return logger.WithOptions(zap.IncreaseLevel(zapLevel))
}
