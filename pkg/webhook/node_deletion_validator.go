package webhook

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
)

// NodeDeletionValidatorInterface defines the interface for node deletion validation.
type NodeDeletionValidatorInterface interface {
	ValidateDelete(ctx context.Context, node *corev1.Node) error
}

// NodeDeletionValidator blocks deletion of a node that a NodeRefresh object
// currently has under active drain, so a racing `kubectl delete node` can't
// remove a node out from under the operator mid-eviction.
type NodeDeletionValidator struct {
	client client.Client
	logger *zap.Logger
}

// NewNodeDeletionValidator creates a new node deletion validator backed by c.
func NewNodeDeletionValidator(c client.Client, logger *zap.Logger) *NodeDeletionValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeDeletionValidator{
		client: c,
		logger: logger,
	}
}

// ValidateDelete validates a node deletion request.
func (v *NodeDeletionValidator) ValidateDelete(ctx context.Context, node *corev1.Node) error {
	v.logger.Debug("validating node deletion", zap.String("node", node.Name))

	var refreshes v1alpha1.NodeRefreshList
	if err := v.client.List(ctx, &refreshes); err != nil {
		return fmt.Errorf("failed to list NodeRefresh objects: %w", err)
	}

	for _, nr := range refreshes.Items {
		if nr.Status.Phase == v1alpha1.PhaseProcessingNode && nr.Status.CurrentNode == node.Name {
			return fmt.Errorf("node %s is currently being drained by NodeRefresh %s/%s, deletion blocked until drain completes", node.Name, nr.Namespace, nr.Name)
		}
	}

	v.logger.Debug("node deletion validated successfully", zap.String("node", node.Name))
	return nil
}
