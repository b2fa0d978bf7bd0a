package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "requestID"
)

// NewLogger creates a new structured logger
func NewLogger(development bool) (*zap.Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	// Always use ISO8601 time encoding
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// NewZapLogger creates a logr.Logger from a zap.Logger for use with controller-runtime
func NewZapLogger(zapLogger *zap.Logger, development bool) logr.Logger {
	return zapr.NewLogger(zapLogger)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context) context.Context {
	requestID := uuid.New().String()
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestIDField adds request ID field to logger if present in context
func WithRequestIDField(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if requestID := GetRequestID(ctx); requestID != "" {
		return logger.With(zap.String("requestID", requestID))
	}
	return logger
}

// LogPhaseTransition logs a NodeRefresh phase transition.
func LogPhaseTransition(logger *zap.Logger, name, fromPhase, toPhase, reason string) {
	logger.Info("NodeRefresh phase transition",
		zap.String("noderefresh", name),
		zap.String("fromPhase", fromPhase),
		zap.String("toPhase", toPhase),
		zap.String("reason", reason),
	)
}

// LogDrainAttempt logs one pass of the drain engine's eviction loop.
func LogDrainAttempt(logger *zap.Logger, node string, attempt, evicted, blocked int) {
	logger.Info("drain attempt",
		zap.String("node", node),
		zap.Int("attempt", attempt),
		zap.Int("evicted", evicted),
		zap.Int("blocked", blocked),
	)
}

// LogDrainOutcome logs the terminal result of draining a node.
func LogDrainOutcome(logger *zap.Logger, node string, succeeded bool, reason string) {
	if succeeded {
		logger.Info("drain succeeded", zap.String("node", node))
		return
	}
	logger.Error("drain failed", zap.String("node", node), zap.String("reason", reason))
}

// LogSchedulerTick logs a scheduler decision for a single object.
func LogSchedulerTick(logger *zap.Logger, name, phase string, changed bool) {
	logger.Debug("scheduler tick",
		zap.String("noderefresh", name),
		zap.String("phase", phase),
		zap.Bool("changed", changed),
	)
}

// LogCooldownWait logs how much cooldown remains before the next refresh.
func LogCooldownWait(logger *zap.Logger, name string, remaining string) {
	logger.Debug("waiting out cooldown",
		zap.String("noderefresh", name),
		zap.String("remaining", remaining),
	)
}

// LogReconciliationStart logs the start of a reconciliation
func LogReconciliationStart(logger *zap.Logger, controller, objectName, namespace string) {
	logger.Debug("Starting reconciliation",
		zap.String("controller", controller),
		zap.String("object", objectName),
		zap.String("namespace", namespace),
	)
}

// LogReconciliationComplete logs the completion of a reconciliation
func LogReconciliationComplete(logger *zap.Logger, controller, objectName, namespace string, duration string, result string) {
	logger.Debug("Reconciliation completed",
		zap.String("controller", controller),
		zap.String("object", objectName),
		zap.String("namespace", namespace),
		zap.String("duration", duration),
		zap.String("result", result),
	)
}

// LogReconciliationError logs a reconciliation error
func LogReconciliationError(logger *zap.Logger, controller, objectName, namespace string, err error, errorType string) {
	logger.Error("Reconciliation error",
		zap.String("controller", controller),
		zap.String("object", objectName),
		zap.String("namespace", namespace),
		zap.Error(err),
		zap.String("errorType", errorType),
	)
}
