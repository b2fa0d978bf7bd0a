package noderefresh

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
)

// StatusWriter applies status mutations to a NodeRefresh object and persists
// them as a merge patch against the captured pre-mutation state: snapshot,
// mutate, patch against the snapshot. The patch carries no resourceVersion
// precondition, so it is not rejected by concurrent writes to the object.
type StatusWriter struct {
	gateway Gateway
}

// NewStatusWriter builds a StatusWriter backed by gw.
func NewStatusWriter(gw Gateway) *StatusWriter {
	return &StatusWriter{gateway: gw}
}

// Mutation is applied to nr.Status in place; it may call any of the
// SetPhase/SetCurrentNode/SetExplicitCondition helpers below.
type Mutation func(nr *v1alpha1.NodeRefresh)

// Patch snapshots nr, applies mutate, and status-patches the delta. Conflicts
// are surfaced to the caller as a transient error so the reconcile loop
// re-fetches and retries with fresh resourceVersion.
func (w *StatusWriter) Patch(ctx context.Context, nr *v1alpha1.NodeRefresh, mutate Mutation) error {
	original := nr.DeepCopy()
	mutate(nr)
	nr.Status.ObservedGeneration = nr.Generation

	return w.gateway.PatchStatus(ctx, nr, original)
}

// SetPhase transitions nr to phase and records an implicit condition whose
// type is the phase itself: most transitions don't carry an independently
// interesting condition type, so the phase doubles as one.
func SetPhase(nr *v1alpha1.NodeRefresh, phase v1alpha1.NodeRefreshPhase, reason, message string) {
	nr.Status.Phase = phase
	setCondition(nr, v1alpha1.NodeRefreshConditionType(phase), metav1.ConditionTrue, reason, message)
}

// SetCurrentNode records (or, passing "", explicitly clears) the node under
// active processing.
func SetCurrentNode(nr *v1alpha1.NodeRefresh, nodeName string) {
	nr.Status.CurrentNode = nodeName
}

// SetLastRefreshTimestamp records the time of the most recently completed
// drain.
func SetLastRefreshTimestamp(nr *v1alpha1.NodeRefresh, t metav1.Time) {
	nr.Status.LastRefreshTimestamp = &t
}

// SetExplicitCondition records a condition whose type is independent of the
// current phase, e.g. a post-success warning that a non-fatal uncordon
// failed.
func SetExplicitCondition(nr *v1alpha1.NodeRefresh, condType v1alpha1.NodeRefreshConditionType, status metav1.ConditionStatus, reason, message string) {
	setCondition(nr, condType, status, reason, message)
}
