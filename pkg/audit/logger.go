package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/noderefresh-operator/pkg/logging"
	"github.com/example/noderefresh-operator/pkg/metrics"
)

// AuditEvent represents a structured audit log entry
type AuditEvent struct {
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// EventType is the type of event (from events.go)
	EventType EventType `json:"eventType"`

	// Category groups related events
	Category EventCategory `json:"category"`

	// Severity indicates the importance level
	Severity EventSeverity `json:"severity"`

	// RequestID correlates the event with a specific request
	RequestID string `json:"requestId,omitempty"`

	// Actor identifies who/what initiated the action
	Actor string `json:"actor,omitempty"`

	// Resource identifies the affected resource
	Resource *ResourceInfo `json:"resource,omitempty"`

	// Details contains event-specific information
	Details map[string]interface{} `json:"details,omitempty"`

	// Outcome indicates success or failure
	Outcome string `json:"outcome,omitempty"`

	// Message is a human-readable description
	Message string `json:"message,omitempty"`

	// Duration is how long the operation took (for completed operations)
	Duration time.Duration `json:"duration,omitempty"`
}

// ResourceInfo identifies an affected resource
type ResourceInfo struct {
	// Kind is the resource type (NodeRefresh, Node, Pod, etc.)
	Kind string `json:"kind"`

	// Name is the resource name
	Name string `json:"name"`

	// Namespace is the resource namespace (if applicable)
	Namespace string `json:"namespace,omitempty"`

	// UID is the resource UID (if available)
	UID string `json:"uid,omitempty"`
}

// AuditLogger handles audit event logging
type AuditLogger struct {
	logger        *zap.Logger
	enabled       bool
	mu            sync.RWMutex
	defaultActor  string
	eventSinks    []EventSink
}

// EventSink defines an interface for custom audit event destinations
type EventSink interface {
	// Write sends an audit event to the sink
	Write(event *AuditEvent) error

	// Close closes the sink
	Close() error
}

// AuditLoggerConfig configures the audit logger
type AuditLoggerConfig struct {
	// Enabled controls whether audit logging is active
	Enabled bool

	// Logger is the underlying zap logger
	Logger *zap.Logger

	// DefaultActor is the default actor if not specified
	DefaultActor string

	// EventSinks are additional destinations for audit events
	EventSinks []EventSink
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(config *AuditLoggerConfig) *AuditLogger {
	if config == nil {
		config = &AuditLoggerConfig{
			Enabled: true,
			Logger:  zap.NewNop(),
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditLogger{
		logger:       logger.Named("audit"),
		enabled:      config.Enabled,
		defaultActor: config.DefaultActor,
		eventSinks:   config.EventSinks,
	}
}

// Log records an audit event
func (a *AuditLogger) Log(ctx context.Context, event *AuditEvent) {
	a.mu.RLock()
	enabled := a.enabled
	a.mu.RUnlock()

	if !enabled {
		return
	}

	// Fill in defaults
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = GetCategory(event.EventType)
	}
	if event.Severity == "" {
		event.Severity = GetSeverity(event.EventType)
	}
	if event.RequestID == "" {
		event.RequestID = logging.GetRequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = a.defaultActor
	}

	// Log the event
	fields := a.buildFields(event)
	switch event.Severity {
	case SeverityCritical:
		a.logger.Error(event.Message, fields...)
	case SeverityError:
		a.logger.Error(event.Message, fields...)
	case SeverityWarning:
		a.logger.Warn(event.Message, fields...)
	default:
		a.logger.Info(event.Message, fields...)
	}

	// Update metrics
	metrics.AuditEventsTotal.WithLabelValues(
		string(event.EventType),
		string(event.Category),
		string(event.Severity),
	).Inc()

	// Send to additional sinks
	for _, sink := range a.eventSinks {
		if err := sink.Write(event); err != nil {
			a.logger.Warn("Failed to write audit event to sink",
				zap.Error(err),
				zap.String("eventType", string(event.EventType)),
			)
		}
	}
}

// buildFields converts an AuditEvent to zap fields
func (a *AuditLogger) buildFields(event *AuditEvent) []zapcore.Field {
	fields := []zapcore.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("eventType", string(event.EventType)),
		zap.String("category", string(event.Category)),
		zap.String("severity", string(event.Severity)),
	}

	if event.RequestID != "" {
		fields = append(fields, zap.String("requestId", event.RequestID))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Outcome != "" {
		fields = append(fields, zap.String("outcome", event.Outcome))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Duration("duration", event.Duration))
	}
	if event.Resource != nil {
		fields = append(fields, zap.Object("resource", zapResourceInfo{event.Resource}))
	}
	if len(event.Details) > 0 {
		// Serialize details to JSON for structured logging
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	return fields
}

// zapResourceInfo wraps ResourceInfo for zap marshaling
type zapResourceInfo struct {
	*ResourceInfo
}

func (r zapResourceInfo) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", r.Kind)
	enc.AddString("name", r.Name)
	if r.Namespace != "" {
		enc.AddString("namespace", r.Namespace)
	}
	if r.UID != "" {
		enc.AddString("uid", r.UID)
	}
	return nil
}

// Enable enables audit logging
func (a *AuditLogger) Enable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = true
}

// Disable disables audit logging
func (a *AuditLogger) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = false
}

// IsEnabled returns whether audit logging is enabled
func (a *AuditLogger) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Close closes all event sinks
func (a *AuditLogger) Close() error {
	for _, sink := range a.eventSinks {
		if err := sink.Close(); err != nil {
			a.logger.Warn("Failed to close audit event sink", zap.Error(err))
		}
	}
	return nil
}

// Helper methods for common audit events

// LogNodeCordoned logs a node cordon event.
func (a *AuditLogger) LogNodeCordoned(ctx context.Context, nodeName string) {
	a.Log(ctx, &AuditEvent{
		EventType: EventNodeCordoned,
		Message:   "node cordoned for drain",
		Outcome:   "success",
		Resource: &ResourceInfo{
			Kind: "Node",
			Name: nodeName,
		},
	})
}

// LogNodeDrained logs the outcome of a full node drain cycle.
func (a *AuditLogger) LogNodeDrained(ctx context.Context, nodeName string, attempts int, duration time.Duration, outcome string) {
	eventType := EventNodeDrained
	if outcome != "success" {
		eventType = EventNodeDrainFailed
	}
	a.Log(ctx, &AuditEvent{
		EventType: eventType,
		Message:   "node drain cycle completed",
		Outcome:   outcome,
		Duration:  duration,
		Resource: &ResourceInfo{
			Kind: "Node",
			Name: nodeName,
		},
		Details: map[string]interface{}{
			"attempts": attempts,
		},
	})
}

// LogPodEvicted logs a single pod eviction attempt.
func (a *AuditLogger) LogPodEvicted(ctx context.Context, namespace, name, nodeName, outcome string) {
	eventType := EventPodEvicted
	if outcome == "blocked" {
		eventType = EventEvictionBlocked
	}
	a.Log(ctx, &AuditEvent{
		EventType: eventType,
		Message:   "pod eviction attempted",
		Outcome:   outcome,
		Resource: &ResourceInfo{
			Kind:      "Pod",
			Name:      name,
			Namespace: namespace,
		},
		Details: map[string]interface{}{
			"node": nodeName,
		},
	})
}

// LogRefreshCycle logs a NodeRefresh object's cycle outcome: node selected,
// no eligible targets, or a completed (or failed) drain.
func (a *AuditLogger) LogRefreshCycle(ctx context.Context, name, namespace string, eventType EventType, message string, details map[string]interface{}) {
	a.Log(ctx, &AuditEvent{
		EventType: eventType,
		Message:   message,
		Resource: &ResourceInfo{
			Kind:      "NodeRefresh",
			Name:      name,
			Namespace: namespace,
		},
		Details: details,
	})
}

// LogAdmissionRejected logs a rejected NodeRefresh admission request.
func (a *AuditLogger) LogAdmissionRejected(ctx context.Context, name, namespace, reason string) {
	a.Log(ctx, &AuditEvent{
		EventType: EventAdmissionRejected,
		Message:   "NodeRefresh admission rejected",
		Outcome:   "rejected",
		Resource: &ResourceInfo{
			Kind:      "NodeRefresh",
			Name:      name,
			Namespace: namespace,
		},
		Details: map[string]interface{}{
			"reason": reason,
		},
	})
}

// LogDeletionBlocked logs a blocked node deletion request.
func (a *AuditLogger) LogDeletionBlocked(ctx context.Context, nodeName, ownerNodeRefresh string) {
	a.Log(ctx, &AuditEvent{
		EventType: EventDeletionBlocked,
		Message:   "node deletion blocked by active drain",
		Outcome:   "blocked",
		Resource: &ResourceInfo{
			Kind: "Node",
			Name: nodeName,
		},
		Details: map[string]interface{}{
			"nodeRefresh": ownerNodeRefresh,
		},
	})
}

// Global audit logger instance
var (
	globalAuditLogger   *AuditLogger
	globalAuditLoggerMu sync.RWMutex
)

// GetGlobalAuditLogger returns the global audit logger instance.
// If no logger has been set via SetGlobalAuditLogger, a default
// no-op logger is created and returned.
func GetGlobalAuditLogger() *AuditLogger {
	globalAuditLoggerMu.RLock()
	logger := globalAuditLogger
	globalAuditLoggerMu.RUnlock()

	if logger != nil {
		return logger
	}

	// Need to initialize - acquire write lock
	globalAuditLoggerMu.Lock()
	defer globalAuditLoggerMu.Unlock()

	// Double-check after acquiring write lock
	if globalAuditLogger != nil {
		return globalAuditLogger
	}

	globalAuditLogger = NewAuditLogger(nil)
	return globalAuditLogger
}

// SetGlobalAuditLogger sets the global audit logger instance.
// This is thread-safe and can be called concurrently with GetGlobalAuditLogger.
func SetGlobalAuditLogger(logger *AuditLogger) {
	globalAuditLoggerMu.Lock()
	defer globalAuditLoggerMu.Unlock()
	globalAuditLogger = logger
}
