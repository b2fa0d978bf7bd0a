package webhook

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	admissionv1 "k8s.io/api/admission/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/serializer"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/audit"
)

const (
	// MaxRequestBodySize for admission webhook requests. Typical NodeRefresh
	// objects are well under 10KB; 128KB provides ample buffer.
	MaxRequestBodySize = 128 * 1024
)

// Server is the NodeRefresh admission webhook server. It validates
// NodeRefresh create/update requests and guards node deletion against
// racing an in-progress drain.
type Server struct {
	server                *http.Server
	logger                *zap.Logger
	nodeRefreshValidator  *NodeRefreshValidator
	nodeDeletionValidator NodeDeletionValidatorInterface
	decoder               runtime.Decoder
}

// ServerConfig contains webhook server configuration.
type ServerConfig struct {
	// Port is the port the webhook server listens on.
	Port int

	// Client is used by the node-deletion validator to look up in-progress
	// NodeRefresh objects.
	Client client.Client

	// Logger is the logger instance.
	Logger *zap.Logger
}

// NewServer creates a new webhook server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	scheme := runtime.NewScheme()
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add NodeRefresh types to scheme: %w", err)
	}
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add core types to scheme: %w", err)
	}

	codecFactory := serializer.NewCodecFactory(scheme)
	decoder := codecFactory.UniversalDeserializer()

	ws := &Server{
		logger:                config.Logger,
		nodeRefreshValidator:  NewNodeRefreshValidator(config.Logger),
		nodeDeletionValidator: NewNodeDeletionValidator(config.Client, config.Logger),
		decoder:               decoder,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/validate/noderefreshes", ws.handleNodeRefreshValidation)
	mux.HandleFunc("/validate/node-deletion", ws.handleNodeDeletionValidation)
	mux.HandleFunc("/healthz", ws.handleHealthz)
	mux.HandleFunc("/readyz", ws.handleReadyz)

	ws.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}

	return ws, nil
}

// Start starts the webhook server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context, certFile, keyFile string) error {
	s.logger.Info("starting webhook server",
		zap.String("addr", s.server.Addr),
		zap.String("cert", certFile),
		zap.String("key", keyFile))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the webhook server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleNodeRefreshValidation handles NodeRefresh validation requests.
func (s *Server) handleNodeRefreshValidation(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("received NodeRefresh validation request")

	if r.Header.Get("Content-Type") != "application/json" {
		s.logger.Warn("invalid content type", zap.String("contentType", r.Header.Get("Content-Type")))
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		s.logger.Error("failed to read request body", zap.Error(err))
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.Body.Close()

	admissionReview := &admissionv1.AdmissionReview{}
	if err := json.Unmarshal(body, admissionReview); err != nil {
		s.logger.Error("failed to unmarshal admission review", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if admissionReview.Request == nil {
		s.logger.Warn("admission request is nil")
		http.Error(w, "admission request is nil", http.StatusBadRequest)
		return
	}

	response := s.validateNodeRefresh(admissionReview.Request)

	admissionReview.Response = response
	admissionReview.Response.UID = admissionReview.Request.UID

	respBytes, err := json.Marshal(admissionReview)
	if err != nil {
		s.logger.Error("failed to marshal admission review response", zap.Error(err))
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(respBytes); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

// validateNodeRefresh validates a NodeRefresh resource.
func (s *Server) validateNodeRefresh(req *admissionv1.AdmissionRequest) *admissionv1.AdmissionResponse {
	if len(req.Object.Raw) == 0 {
		return &admissionv1.AdmissionResponse{
			Allowed: false,
			Result: &metav1.Status{
				Status:  metav1.StatusFailure,
				Message: "request object is empty",
				Code:    http.StatusBadRequest,
			},
		}
	}

	nr := &v1alpha1.NodeRefresh{}
	if _, _, err := s.decoder.Decode(req.Object.Raw, nil, nr); err != nil {
		s.logger.Error("failed to decode NodeRefresh", zap.Error(err))
		return &admissionv1.AdmissionResponse{
			Allowed: false,
			Result: &metav1.Status{
				Status:  metav1.StatusFailure,
				Message: fmt.Sprintf("failed to decode NodeRefresh: %v", err),
				Code:    http.StatusBadRequest,
			},
		}
	}

	if err := s.nodeRefreshValidator.Validate(nr, req.Operation); err != nil {
		s.logger.Info("NodeRefresh validation failed",
			zap.String("name", nr.Name),
			zap.String("namespace", nr.Namespace),
			zap.Error(err))
		audit.GetGlobalAuditLogger().LogAdmissionRejected(context.Background(), nr.Name, nr.Namespace, err.Error())
		return &admissionv1.AdmissionResponse{
			Allowed: false,
			Result: &metav1.Status{
				Status:  metav1.StatusFailure,
				Message: err.Error(),
				Code:    http.StatusUnprocessableEntity,
			},
		}
	}

	s.logger.Debug("NodeRefresh validation succeeded",
		zap.String("name", nr.Name),
		zap.String("namespace", nr.Namespace))

	return &admissionv1.AdmissionResponse{Allowed: true}
}

// handleNodeDeletionValidation handles node deletion validation requests.
func (s *Server) handleNodeDeletionValidation(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("received node deletion validation request")

	if r.Header.Get("Content-Type") != "application/json" {
		s.logger.Warn("invalid content type", zap.String("contentType", r.Header.Get("Content-Type")))
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		s.logger.Error("failed to read request body", zap.Error(err))
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.Body.Close()

	admissionReview := &admissionv1.AdmissionReview{}
	if err := json.Unmarshal(body, admissionReview); err != nil {
		s.logger.Error("failed to unmarshal admission review", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if admissionReview.Request == nil {
		s.logger.Warn("admission request is nil")
		http.Error(w, "admission request is nil", http.StatusBadRequest)
		return
	}

	response := s.validateNodeDeletion(r.Context(), admissionReview.Request)

	admissionReview.Response = response
	admissionReview.Response.UID = admissionReview.Request.UID

	respBytes, err := json.Marshal(admissionReview)
	if err != nil {
		s.logger.Error("failed to marshal admission review response", zap.Error(err))
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(respBytes); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

// validateNodeDeletion validates a node deletion request.
func (s *Server) validateNodeDeletion(ctx context.Context, req *admissionv1.AdmissionRequest) *admissionv1.AdmissionResponse {
	if req.Operation != admissionv1.Delete {
		s.logger.Warn("unexpected operation for node deletion webhook", zap.String("operation", string(req.Operation)))
		return &admissionv1.AdmissionResponse{Allowed: true}
	}

	if len(req.OldObject.Raw) == 0 {
		return &admissionv1.AdmissionResponse{
			Allowed: false,
			Result: &metav1.Status{
				Status:  metav1.StatusFailure,
				Message: "request oldObject is empty",
				Code:    http.StatusBadRequest,
			},
		}
	}

	node := &corev1.Node{}
	if _, _, err := s.decoder.Decode(req.OldObject.Raw, nil, node); err != nil {
		s.logger.Error("failed to decode Node", zap.Error(err))
		return &admissionv1.AdmissionResponse{
			Allowed: false,
			Result: &metav1.Status{
				Status:  metav1.StatusFailure,
				Message: fmt.Sprintf("failed to decode Node: %v", err),
				Code:    http.StatusBadRequest,
			},
		}
	}

	if err := s.nodeDeletionValidator.ValidateDelete(ctx, node); err != nil {
		s.logger.Info("node deletion validation failed", zap.String("node", node.Name), zap.Error(err))
		audit.GetGlobalAuditLogger().LogDeletionBlocked(ctx, node.Name, err.Error())
		return &admissionv1.AdmissionResponse{
			Allowed: false,
			Result: &metav1.Status{
				Status:  metav1.StatusFailure,
				Message: err.Error(),
				Code:    http.StatusForbidden,
			},
		}
	}

	s.logger.Debug("node deletion validated successfully", zap.String("node", node.Name))
	return &admissionv1.AdmissionResponse{Allowed: true}
}

// handleHealthz handles liveness probe requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness probe requests.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
