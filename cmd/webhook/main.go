package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/audit"
	"github.com/example/noderefresh-operator/pkg/webhook"
)

var (
	port       int
	certDir    string
	certFile   string
	keyFile    string
	logLevel   string
	logFormat  string
	kubeconfig string
)

func init() {
	flag.IntVar(&port, "port", 9443, "port to listen on for webhook requests")
	flag.StringVar(&certDir, "cert-dir", "/var/run/webhook-certs", "directory containing TLS certificates")
	flag.StringVar(&certFile, "tls-cert-file", "tls.crt", "TLS certificate file name")
	flag.StringVar(&keyFile, "tls-key-file", "tls.key", "TLS private key file name")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "json", "log format (json, console)")
	flag.StringVar(&kubeconfig, "kubeconfig", "", "path to the kubeconfig file; empty uses in-cluster configuration")
}

func main() {
	flag.Parse()

	logger, err := createLogger(logLevel, logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting noderefresh admission webhook",
		zap.Int("port", port),
		zap.String("cert-dir", certDir),
		zap.String("log-level", logLevel))

	audit.SetGlobalAuditLogger(audit.NewAuditLogger(&audit.AuditLoggerConfig{
		Enabled:      true,
		Logger:       logger,
		DefaultActor: "noderefresh-webhook",
	}))

	k8sClient, err := buildClient(kubeconfig)
	if err != nil {
		logger.Fatal("failed to build kubernetes client", zap.Error(err))
	}

	server, err := webhook.NewServer(webhook.ServerConfig{
		Port:   port,
		Client: k8sClient,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create webhook server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	certPath := filepath.Join(certDir, certFile)
	keyPath := filepath.Join(certDir, keyFile)

	logger.Info("webhook server configuration",
		zap.String("cert-file", certPath),
		zap.String("key-file", keyPath))

	if err := server.Start(ctx, certPath, keyPath); err != nil {
		logger.Fatal("webhook server failed", zap.Error(err))
	}

	logger.Info("webhook server shut down gracefully")
}

// buildClient resolves a controller-runtime client backed by the node
// deletion validator's scheme (core types + NodeRefresh CRD).
func buildClient(kubeconfig string) (client.Client, error) {
	var config *rest.Config
	var err error
	if kubeconfig != "" {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
	} else {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add core types to scheme: %w", err)
	}
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add NodeRefresh CRD to scheme: %w", err)
	}

	return client.New(config, client.Options{Scheme: scheme})
}

// createLogger creates a zap logger with the specified level and format.
func createLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q (must be 'json' or 'console')", format)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stdout),
		zapLevel,
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
