package noderefresh

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
)

// PodEvictionGracePeriod is the grace period attached to every Eviction
// request, matching the cluster-wide default pods are used to.
const PodEvictionGracePeriod = 30 * time.Second

// Gateway wraps the Kubernetes API calls made by the drain engine, the phase
// handlers and the StatusWriter. Those components depend on this interface
// rather than on client.Client directly, so tests substitute a fake
// implementation instead of a fake API server. The Reconciler's own
// NodeRefresh fetch and the Scheduler's NodeRefresh listing use client.Client.
type Gateway interface {
	ListNodes(ctx context.Context, desiredLabels map[string]string) ([]corev1.Node, error)
	GetNode(ctx context.Context, name string) (*corev1.Node, error)
	PatchNodeSchedulable(ctx context.Context, name string, unschedulable bool) error
	ListActivePodsOnNode(ctx context.Context, nodeName string) ([]corev1.Pod, error)
	EvictPod(ctx context.Context, namespace, name string) (EvictionOutcome, error)
	PatchStatus(ctx context.Context, nr, original *v1alpha1.NodeRefresh) error
}

// clientGateway is the production Gateway, a thin adapter over
// controller-runtime's generic client.
type clientGateway struct {
	client client.Client
}

// NewGateway builds a Gateway backed by c.
func NewGateway(c client.Client) Gateway {
	return &clientGateway{client: c}
}

func (g *clientGateway) ListNodes(ctx context.Context, desiredLabels map[string]string) ([]corev1.Node, error) {
	list := &corev1.NodeList{}
	if err := g.client.List(ctx, list, client.MatchingLabels(desiredLabels)); err != nil {
		return nil, TransientError(fmt.Errorf("list nodes: %w", err))
	}
	return list.Items, nil
}

func (g *clientGateway) GetNode(ctx context.Context, name string) (*corev1.Node, error) {
	node := &corev1.Node{}
	if err := g.client.Get(ctx, client.ObjectKey{Name: name}, node); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, NotFoundError(err)
		}
		return nil, TransientError(fmt.Errorf("get node %s: %w", name, err))
	}
	return node, nil
}

func (g *clientGateway) PatchNodeSchedulable(ctx context.Context, name string, unschedulable bool) error {
	node, err := g.GetNode(ctx, name)
	if err != nil {
		if CategoryOf(err) == CategoryNotFound {
			return nil
		}
		return err
	}
	if node.Spec.Unschedulable == unschedulable {
		return nil
	}

	original := node.DeepCopy()
	node.Spec.Unschedulable = unschedulable
	if err := g.client.Patch(ctx, node, client.MergeFrom(original)); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return TransientError(fmt.Errorf("patch node %s schedulable=%v: %w", name, !unschedulable, err))
	}
	return nil
}

func (g *clientGateway) ListActivePodsOnNode(ctx context.Context, nodeName string) ([]corev1.Pod, error) {
	list := &corev1.PodList{}
	err := g.client.List(ctx, list, &client.ListOptions{
		FieldSelector: fields.SelectorFromSet(fields.Set{"spec.nodeName": nodeName}),
	})
	if err != nil {
		return nil, TransientError(fmt.Errorf("list pods on node %s: %w", nodeName, err))
	}

	active := make([]corev1.Pod, 0, len(list.Items))
	for _, pod := range list.Items {
		if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
			continue
		}
		active = append(active, pod)
	}
	return active, nil
}

func (g *clientGateway) EvictPod(ctx context.Context, namespace, name string) (EvictionOutcome, error) {
	gracePeriod := int64(PodEvictionGracePeriod.Seconds())
	eviction := &policyv1.Eviction{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		DeleteOptions: &metav1.DeleteOptions{
			GracePeriodSeconds: &gracePeriod,
		},
	}

	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	err := g.client.SubResource("eviction").Create(ctx, pod, eviction)
	if err == nil {
		return EvictionEvicted, nil
	}
	if apierrors.IsNotFound(err) {
		return EvictionGone, nil
	}
	if apierrors.IsTooManyRequests(err) {
		return EvictionBlocked, nil
	}
	return EvictionFatal, fmt.Errorf("evict pod %s/%s: %w", namespace, name, err)
}

func (g *clientGateway) PatchStatus(ctx context.Context, nr, original *v1alpha1.NodeRefresh) error {
	if err := g.client.Status().Patch(ctx, nr, client.MergeFrom(original)); err != nil {
		if apierrors.IsConflict(err) {
			return TransientError(err)
		}
		return TransientError(fmt.Errorf("patch status for %s: %w", nr.Name, err))
	}
	return nil
}
