package v1alpha1

// Label and annotation keys used to identify the operator's own workload so
// the drain engine never evicts itself, and well-known condition/reason
// vocabulary shared between the scheduler tick and the reconciler.
const (
	// OperatorComponentLabelKey marks a pod as belonging to this operator.
	// The drain engine's self-exclusion filter (IsOperatorPod) matches on
	// this label alone; the pod's namespace is not checked.
	OperatorComponentLabelKey = "stable.example.com/component"

	// OperatorComponentLabelValue is the expected value of
	// OperatorComponentLabelKey on the operator's own pod.
	OperatorComponentLabelValue = "node-refresh-operator"
)

// Condition types recorded on NodeRefresh.status.conditions. Most are
// implicit conditions derived from a phase transition (type == phase name);
// the remainder are explicit conditions recorded alongside a phase.
const (
	// ConditionWarning is used for non-fatal problems that do not block the
	// current cycle, e.g. an uncordon failure after a successful drain.
	ConditionWarning NodeRefreshConditionType = "Warning"
)

// Reasons used on implicit and explicit conditions. Kept in the API package
// (rather than the controller package) so external tooling reading
// NodeRefresh.status does not need to import the controller.
const (
	ReasonNoTargetNodes          = "NoTargetNodes"
	ReasonNoReplacementAvailable = "NoReplacementAvailable"
	ReasonNodeSelected           = "NodeSelected"
	ReasonNodeVanished           = "NodeVanished"
	ReasonLabelsChanged          = "LabelsChanged"
	ReasonDrainFailed            = "DrainFailed"
	ReasonDrainSucceeded         = "DrainSucceeded"
	ReasonUncordonFailed         = "UncordonFailed"
	ReasonCooldownFinished       = "CooldownFinished"
	ReasonCooldownCorrupt        = "CooldownCorrupt"
	ReasonScheduleDue            = "ScheduleDue"
	ReasonDeletionObserved       = "DeletionObserved"
)

// IsOperatorPod reports whether labels identify a pod as the operator's own,
// in which case it must be excluded from any drain.
func IsOperatorPod(labels map[string]string) bool {
	if labels == nil {
		return false
	}
	return labels[OperatorComponentLabelKey] == OperatorComponentLabelValue
}
