package noderefresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/audit"
	"github.com/example/noderefresh-operator/pkg/logging"
	"github.com/example/noderefresh-operator/pkg/metrics"
)

// MaxDrainAttempts bounds the eviction loop so a stubbornly-blocked node
// fails the cycle instead of holding a worker forever.
const MaxDrainAttempts = 10

// Backoff delays between eviction attempts, chosen by how the previous
// attempt went.
const (
	backoffNoProgress     = 30 * time.Second
	backoffPartialProgress = 10 * time.Second
	backoffFullProgress   = 5 * time.Second

	interEvictionDelay = 1 * time.Second

	// finalCheckInterval/finalCheckTimeout bound the grace period given to
	// the API server to reflect pod terminations after the last eviction
	// attempt, before the drain is declared failed outright.
	finalCheckInterval = 2 * time.Second
	finalCheckTimeout  = 10 * time.Second
)

// Drainer transforms a selected node from schedulable-with-workloads to
// cordoned-and-empty.
type Drainer struct {
	gateway         Gateway
	evictionLimiter *rate.Limiter
}

// NewDrainer builds a Drainer backed by gw. Eviction calls within a single
// attempt are paced at one per interEvictionDelay so a large pod count on
// one node can't hammer the API server.
func NewDrainer(gw Gateway) *Drainer {
	return &Drainer{
		gateway:         gw,
		evictionLimiter: rate.NewLimiter(rate.Every(interEvictionDelay), 1),
	}
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DrainNode runs the full protocol: cordon, bounded adaptive eviction loop,
// final emptiness check. The returned error is always categorized (see
// errors.go) so the caller can branch without inspecting error text.
func (d *Drainer) DrainNode(ctx context.Context, nodeName string, logger *zap.Logger) error {
	logger.Info("starting node drain", zap.String("node", nodeName))
	start := time.Now()

	if err := d.gateway.PatchNodeSchedulable(ctx, nodeName, true); err != nil {
		return TransientErrorf("cordon node %s: %w", nodeName, err)
	}
	audit.GetGlobalAuditLogger().LogNodeCordoned(ctx, nodeName)

	for attempt := 1; attempt <= MaxDrainAttempts; attempt++ {
		metrics.DrainAttemptsTotal.WithLabelValues(nodeName).Inc()

		pods, err := d.filteredActivePods(ctx, nodeName)
		if err != nil {
			return err
		}

		if len(pods) == 0 {
			logger.Info("node drained", zap.String("node", nodeName), zap.Int("attempts", attempt))
			metrics.DrainsTotal.WithLabelValues("succeeded").Inc()
			metrics.DrainDuration.WithLabelValues("succeeded").Observe(time.Since(start).Seconds())
			audit.GetGlobalAuditLogger().LogNodeDrained(ctx, nodeName, attempt, time.Since(start), "success")
			return nil
		}

		logger.Info("eviction attempt",
			zap.String("node", nodeName),
			zap.Int("attempt", attempt),
			zap.Int("pods", len(pods)),
		)

		evicted, blocked, err := d.evictAll(ctx, pods, logger)
		if err != nil {
			return err
		}
		logging.LogDrainAttempt(logger, nodeName, attempt, evicted, blocked)

		if attempt == MaxDrainAttempts {
			break
		}

		delay := backoffFor(evicted, blocked)
		logger.Debug("backing off before next eviction attempt",
			zap.String("node", nodeName),
			zap.Int("evicted", evicted),
			zap.Int("blocked", blocked),
			zap.Duration("delay", delay),
		)
		if err := sleep(ctx, delay); err != nil {
			return TransientError(err)
		}
	}

	var remaining []corev1.Pod
	pollErr := wait.PollUntilContextTimeout(ctx, finalCheckInterval, finalCheckTimeout, true, func(ctx context.Context) (bool, error) {
		pods, err := d.filteredActivePods(ctx, nodeName)
		if err != nil {
			return false, err
		}
		remaining = pods
		return len(pods) == 0, nil
	})
	if pollErr != nil && !errors.Is(pollErr, context.DeadlineExceeded) {
		return TransientError(pollErr)
	}
	if len(remaining) == 0 {
		logger.Info("node drained on final check", zap.String("node", nodeName))
		metrics.DrainsTotal.WithLabelValues("succeeded").Inc()
		metrics.DrainDuration.WithLabelValues("succeeded").Observe(time.Since(start).Seconds())
		audit.GetGlobalAuditLogger().LogNodeDrained(ctx, nodeName, MaxDrainAttempts, time.Since(start), "success")
		return nil
	}

	names := make([]string, 0, len(remaining))
	for _, p := range remaining {
		names = append(names, p.Namespace+"/"+p.Name)
	}
	metrics.DrainsTotal.WithLabelValues("failed").Inc()
	metrics.DrainDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	reason := fmt.Sprintf("node %s still has pods after %d attempts: %s", nodeName, MaxDrainAttempts, strings.Join(names, ", "))
	logging.LogDrainOutcome(logger, nodeName, false, reason)
	audit.GetGlobalAuditLogger().LogNodeDrained(ctx, nodeName, MaxDrainAttempts, time.Since(start), "failure")
	return FatalError(errors.New(reason))
}

// backoffFor picks the adaptive delay per the evicted/blocked counts from
// the attempt just completed.
func backoffFor(evicted, blocked int) time.Duration {
	switch {
	case evicted == 0 && blocked > 0:
		return backoffNoProgress
	case evicted > 0 && blocked > 0:
		return backoffPartialProgress
	default:
		return backoffFullProgress
	}
}

// filteredActivePods fetches the active-pod set on node and removes pods
// that must never be evicted by this engine.
func (d *Drainer) filteredActivePods(ctx context.Context, nodeName string) ([]corev1.Pod, error) {
	pods, err := d.gateway.ListActivePodsOnNode(ctx, nodeName)
	if err != nil {
		return nil, err
	}

	filtered := make([]corev1.Pod, 0, len(pods))
	for _, pod := range pods {
		if v1alpha1.IsOperatorPod(pod.Labels) {
			continue
		}
		if isDaemonSetPod(&pod) {
			continue
		}
		filtered = append(filtered, pod)
	}
	return filtered, nil
}

// isDaemonSetPod reports whether pod is owned by a DaemonSet: such pods are
// always recreated on the node and evicting them would loop forever.
func isDaemonSetPod(pod *corev1.Pod) bool {
	for _, owner := range pod.OwnerReferences {
		if owner.Kind == "DaemonSet" {
			return true
		}
	}
	return false
}

// evictAll attempts eviction of each pod serially with a crude rate limit,
// tallying outcomes. A Fatal outcome aborts immediately and propagates.
func (d *Drainer) evictAll(ctx context.Context, pods []corev1.Pod, logger *zap.Logger) (evicted, blocked int, err error) {
	for _, pod := range pods {
		if err := d.evictionLimiter.Wait(ctx); err != nil {
			return evicted, blocked, TransientError(err)
		}

		outcome, evictErr := d.gateway.EvictPod(ctx, pod.Namespace, pod.Name)
		switch outcome {
		case EvictionEvicted:
			evicted++
			metrics.PodEvictionsTotal.WithLabelValues("evicted").Inc()
		case EvictionGone:
			evicted++
			metrics.PodEvictionsTotal.WithLabelValues("gone").Inc()
		case EvictionBlocked:
			blocked++
			metrics.PodEvictionsTotal.WithLabelValues("blocked").Inc()
			logger.Debug("eviction blocked by disruption budget",
				zap.String("pod", pod.Name),
				zap.String("namespace", pod.Namespace),
			)
			audit.GetGlobalAuditLogger().LogPodEvicted(ctx, pod.Namespace, pod.Name, pod.Spec.NodeName, "blocked")
		case EvictionFatal:
			metrics.PodEvictionsTotal.WithLabelValues("fatal").Inc()
			return evicted, blocked, FatalErrorf("evict pod %s/%s: %w", pod.Namespace, pod.Name, evictErr)
		}
	}
	return evicted, blocked, nil
}

// Uncordon marks node schedulable again after a successful drain. Failure is
// recorded by the caller as a Warning condition rather than failing the
// cycle (see conditions.go / phases.go).
func (d *Drainer) Uncordon(ctx context.Context, nodeName string) error {
	return d.gateway.PatchNodeSchedulable(ctx, nodeName, false)
}
