package noderefresh

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
)

// MaxConditions bounds the length of status.conditions. The oldest entry is
// discarded on overflow so the history never grows without bound.
const MaxConditions = 10

// setCondition upserts a condition by type, matching the teacher's
// find-or-append shape, then truncates the history to MaxConditions.
func setCondition(nr *v1alpha1.NodeRefresh, condType v1alpha1.NodeRefreshConditionType, status metav1.ConditionStatus, reason, message string) {
	now := metav1.Now()

	for i := range nr.Status.Conditions {
		if nr.Status.Conditions[i].Type == condType {
			cond := &nr.Status.Conditions[i]
			cond.Status = status
			cond.Reason = reason
			cond.Message = message
			cond.LastTransitionTime = now
			truncateConditions(nr)
			return
		}
	}

	nr.Status.Conditions = append(nr.Status.Conditions, v1alpha1.NodeRefreshCondition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
	truncateConditions(nr)
}

// truncateConditions drops the oldest entries once the history exceeds
// MaxConditions, keeping the most recent ones in place.
func truncateConditions(nr *v1alpha1.NodeRefresh) {
	n := len(nr.Status.Conditions)
	if n <= MaxConditions {
		return
	}
	nr.Status.Conditions = append([]v1alpha1.NodeRefreshCondition{}, nr.Status.Conditions[n-MaxConditions:]...)
}

// GetCondition returns the condition with the given type, or nil.
func GetCondition(nr *v1alpha1.NodeRefresh, condType v1alpha1.NodeRefreshConditionType) *v1alpha1.NodeRefreshCondition {
	for i := range nr.Status.Conditions {
		if nr.Status.Conditions[i].Type == condType {
			return &nr.Status.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue reports whether condType is present and set to True.
func IsConditionTrue(nr *v1alpha1.NodeRefresh, condType v1alpha1.NodeRefreshConditionType) bool {
	cond := GetCondition(nr, condType)
	return cond != nil && cond.Status == metav1.ConditionTrue
}
