package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NodeRefreshSpec defines the desired state of NodeRefresh.
type NodeRefreshSpec struct {
	// TargetNodeLabels selects target nodes via exact equality of all pairs.
	// A node matches if every key/value here is present in its labels;
	// extra labels on the node are permitted.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinProperties=1
	TargetNodeLabels map[string]string `json:"targetNodeLabels"`

	// RefreshScheduleDays is the interval, in days, between refresh cycles.
	// +optional
	// +kubebuilder:default=3
	// +kubebuilder:validation:Minimum=1
	RefreshScheduleDays int `json:"refreshScheduleDays,omitempty"`

	// NodeCooldownSeconds is the minimum delay between finishing one node
	// and starting another within the same refresh cycle.
	// +optional
	// +kubebuilder:default=300
	// +kubebuilder:validation:Minimum=0
	NodeCooldownSeconds int `json:"nodeCooldownSeconds,omitempty"`
}

// NodeRefreshPhase is the coarse lifecycle state of a NodeRefresh object.
type NodeRefreshPhase string

const (
	// PhaseIdle indicates no refresh cycle is currently in progress.
	PhaseIdle NodeRefreshPhase = "Idle"

	// PhaseFindingNodes indicates the reconciler is selecting a target node.
	PhaseFindingNodes NodeRefreshPhase = "FindingNodes"

	// PhaseProcessingNode indicates a node is being drained.
	PhaseProcessingNode NodeRefreshPhase = "ProcessingNode"

	// PhaseWaitingCooldown indicates a node finished draining and the object
	// is pacing before returning to Idle.
	PhaseWaitingCooldown NodeRefreshPhase = "WaitingCooldown"

	// PhaseSucceeded indicates the cycle drained its last eligible node and
	// no replacement remains to continue with.
	PhaseSucceeded NodeRefreshPhase = "Succeeded"

	// PhaseFailed indicates the cycle could not complete and will not be
	// retried until the next scheduled refresh is due.
	PhaseFailed NodeRefreshPhase = "Failed"
)

// NodeRefreshStatus defines the observed state of NodeRefresh. Only the
// controller mutates this subresource.
type NodeRefreshStatus struct {
	// Phase is the current lifecycle phase.
	// +optional
	Phase NodeRefreshPhase `json:"phase,omitempty"`

	// CurrentNode is the name of the node under active processing. Empty
	// whenever Phase != ProcessingNode.
	// +optional
	CurrentNode string `json:"currentNode,omitempty"`

	// LastRefreshTimestamp is the time of the most recent successful node
	// drain. Monotonically non-decreasing over the object's lifetime.
	// +optional
	LastRefreshTimestamp *metav1.Time `json:"lastRefreshTimestamp,omitempty"`

	// Conditions is an ordered history of at most MaxConditions entries.
	// Oldest entries are discarded on overflow.
	// +optional
	Conditions []NodeRefreshCondition `json:"conditions,omitempty"`

	// ObservedGeneration is the generation last acted on by the controller.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// NodeRefreshConditionType is the type discriminator of a condition entry.
type NodeRefreshConditionType string

// NodeRefreshCondition describes a point-in-time observation of a
// NodeRefresh object's state.
type NodeRefreshCondition struct {
	// Type of condition.
	Type NodeRefreshConditionType `json:"type"`

	// Status of the condition: True, False, or Unknown.
	Status metav1.ConditionStatus `json:"status"`

	// LastTransitionTime is when this condition last changed.
	// +optional
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`

	// Reason is a one-word CamelCase reason for the transition.
	// +optional
	Reason string `json:"reason,omitempty"`

	// Message is a human-readable detail about the transition.
	// +optional
	Message string `json:"message,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=nr;nrs
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`,description="Refresh phase"
// +kubebuilder:printcolumn:name="Current Node",type=string,JSONPath=`.status.currentNode`,description="Node under active processing"
// +kubebuilder:printcolumn:name="Last Refresh",type=date,JSONPath=`.status.lastRefreshTimestamp`,description="Most recent successful drain"
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// NodeRefresh is the Schema for the noderefreshes API. It periodically
// drains one node at a time from the set matched by TargetNodeLabels.
type NodeRefresh struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   NodeRefreshSpec   `json:"spec,omitempty"`
	Status NodeRefreshStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// NodeRefreshList contains a list of NodeRefresh.
type NodeRefreshList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []NodeRefresh `json:"items"`
}

func init() {
	SchemeBuilder.Register(&NodeRefresh{}, &NodeRefreshList{})
}
