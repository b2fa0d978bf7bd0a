// Package v1alpha1 contains the v1alpha1 API definitions for the node-refresh operator.
//
// The stable.example.com API group provides a single custom resource,
// NodeRefresh, that drives the periodic drain-and-uncordon cycle for a set
// of worker nodes selected by label.
//
// +kubebuilder:object:generate=true
// +groupName=stable.example.com
package v1alpha1
