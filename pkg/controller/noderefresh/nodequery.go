package noderefresh

import (
	corev1 "k8s.io/api/core/v1"
)

// Ready reports whether node carries a Ready=True node condition.
func Ready(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// Schedulable reports whether node accepts new pods.
func Schedulable(node *corev1.Node) bool {
	return !node.Spec.Unschedulable
}

// MatchesLabels reports whether node carries every key/value pair in
// desired. Extra labels on the node beyond desired are permitted.
func MatchesLabels(node *corev1.Node, desired map[string]string) bool {
	for k, v := range desired {
		if node.Labels[k] != v {
			return false
		}
	}
	return true
}

// Selectable reports whether node is both Ready and Schedulable, the
// precondition for being a drain target or a replacement.
func Selectable(node *corev1.Node) bool {
	return Ready(node) && Schedulable(node)
}

// FilterSelectable returns the subset of nodes that are Selectable,
// excluding any node named exclude.
func FilterSelectable(nodes []corev1.Node, exclude string) []corev1.Node {
	var out []corev1.Node
	for i := range nodes {
		if nodes[i].Name == exclude {
			continue
		}
		if Selectable(&nodes[i]) {
			out = append(out, nodes[i])
		}
	}
	return out
}
