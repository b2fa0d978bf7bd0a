package webhook

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
	admissionv1 "k8s.io/api/admission/v1"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
)

// labelKeyRegex and labelValueRegex validate Kubernetes label key/value
// syntax for entries in spec.targetNodeLabels.
var (
	labelKeyRegex   = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-_.]*[a-zA-Z0-9])?/)?[a-zA-Z0-9]([a-zA-Z0-9-_.]*[a-zA-Z0-9])?$`)
	labelValueRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-_.]*[a-zA-Z0-9])?$`)
)

// NodeRefreshValidator validates NodeRefresh resources.
type NodeRefreshValidator struct {
	logger *zap.Logger
}

// NewNodeRefreshValidator creates a new NodeRefresh validator.
func NewNodeRefreshValidator(logger *zap.Logger) *NodeRefreshValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeRefreshValidator{logger: logger}
}

// Validate validates a NodeRefresh resource on create or update.
func (v *NodeRefreshValidator) Validate(nr *v1alpha1.NodeRefresh, operation admissionv1.Operation) error {
	v.logger.Debug("validating NodeRefresh",
		zap.String("name", nr.Name),
		zap.String("namespace", nr.Namespace),
		zap.String("operation", string(operation)))

	if operation != admissionv1.Create && operation != admissionv1.Update {
		return nil
	}

	if err := v.validateTargetNodeLabels(nr); err != nil {
		return err
	}
	if err := v.validateScheduleDays(nr); err != nil {
		return err
	}
	if err := v.validateCooldown(nr); err != nil {
		return err
	}

	return nil
}

func (v *NodeRefreshValidator) validateTargetNodeLabels(nr *v1alpha1.NodeRefresh) error {
	if len(nr.Spec.TargetNodeLabels) == 0 {
		return fmt.Errorf("spec.targetNodeLabels must contain at least one entry")
	}

	for key, value := range nr.Spec.TargetNodeLabels {
		if !labelKeyRegex.MatchString(key) {
			return fmt.Errorf("spec.targetNodeLabels has invalid key %q", key)
		}
		if value != "" && !labelValueRegex.MatchString(value) {
			return fmt.Errorf("spec.targetNodeLabels has invalid value %q for key %q", value, key)
		}
	}
	return nil
}

func (v *NodeRefreshValidator) validateScheduleDays(nr *v1alpha1.NodeRefresh) error {
	if nr.Spec.RefreshScheduleDays < 0 {
		return fmt.Errorf("spec.refreshScheduleDays must not be negative, got %d", nr.Spec.RefreshScheduleDays)
	}
	return nil
}

func (v *NodeRefreshValidator) validateCooldown(nr *v1alpha1.NodeRefresh) error {
	if nr.Spec.NodeCooldownSeconds < 0 {
		return fmt.Errorf("spec.nodeCooldownSeconds must not be negative, got %d", nr.Spec.NodeCooldownSeconds)
	}
	return nil
}
