package noderefresh

import (
	"context"
	"time"

	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/logging"
	"github.com/example/noderefresh-operator/pkg/metrics"
)

// Scheduler runs the periodic per-object tick that drives time-based
// transitions (cooldown expiry, schedule-due detection). It never drains a
// node itself; when a tick decides a refresh is due it only flips the phase
// to FindingNodes and lets the reconciler take it from there.
type Scheduler struct {
	client   client.Client
	writer   *StatusWriter
	logger   *zap.Logger
	interval time.Duration
}

// NewScheduler builds a Scheduler. c is used only to list NodeRefresh
// objects; all status mutation goes through writer.
func NewScheduler(c client.Client, writer *StatusWriter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		client:   c,
		writer:   writer,
		logger:   logger,
		interval: RefreshTimerInterval,
	}
}

// Start blocks, ticking every interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tickAll(ctx)
		}
	}
}

func (s *Scheduler) tickAll(ctx context.Context) {
	list := &v1alpha1.NodeRefreshList{}
	if err := s.client.List(ctx, list); err != nil {
		s.logger.Error("scheduler tick: failed to list NodeRefresh objects", zap.Error(err))
		return
	}

	now := time.Now()
	phaseCounts := map[string]int{}
	for i := range list.Items {
		nr := &list.Items[i]
		phaseCounts[string(nr.Status.Phase)]++

		if nr.Status.Phase == v1alpha1.PhaseWaitingCooldown {
			s.recordCooldownRemaining(nr, now)
		}

		if err := s.tickOne(ctx, nr, now); err != nil {
			s.logger.Warn("scheduler tick failed for object",
				zap.String("noderefresh", nr.Name),
				zap.Error(err),
			)
		}
	}

	metrics.ReconcilePhaseGauge.Reset()
	for phase, count := range phaseCounts {
		metrics.ReconcilePhaseGauge.WithLabelValues(phase, "").Set(float64(count))
	}
}

func (s *Scheduler) recordCooldownRemaining(nr *v1alpha1.NodeRefresh, now time.Time) {
	cond := GetCondition(nr, v1alpha1.NodeRefreshConditionType(v1alpha1.PhaseWaitingCooldown))
	if cond == nil || cond.LastTransitionTime.IsZero() {
		return
	}
	cooldown := time.Duration(nr.Spec.NodeCooldownSeconds) * time.Second
	remaining := cooldown - now.Sub(cond.LastTransitionTime.Time)
	if remaining < 0 {
		remaining = 0
	}
	metrics.CooldownRemainingSeconds.WithLabelValues(nr.Name).Set(remaining.Seconds())
	logging.LogCooldownWait(s.logger, nr.Name, remaining.String())
}

func (s *Scheduler) tickOne(ctx context.Context, nr *v1alpha1.NodeRefresh, now time.Time) error {
	changed := willChange(nr, now)
	label := "false"
	if changed {
		label = "true"
	}
	metrics.SchedulerTicksTotal.WithLabelValues(label).Inc()
	logging.LogSchedulerTick(s.logger, nr.Name, string(nr.Status.Phase), changed)

	if !changed {
		return nil
	}
	return s.writer.Patch(ctx, nr, func(nr *v1alpha1.NodeRefresh) {
		Tick(nr, now)
	})
}

// willChange is a read-only preview of Tick so the scheduler skips an API
// call for objects that will yield.
func willChange(nr *v1alpha1.NodeRefresh, now time.Time) bool {
	preview := nr.DeepCopy()
	return Tick(preview, now)
}

// Tick applies the scheduler's decision tree to nr in place and reports
// whether anything changed. phase ∈ {FindingNodes, ProcessingNode} always
// yields: the reconciler owns those phases.
func Tick(nr *v1alpha1.NodeRefresh, now time.Time) bool {
	phase := nr.Status.Phase

	if phase == v1alpha1.PhaseFindingNodes || phase == v1alpha1.PhaseProcessingNode {
		return false
	}

	changed := false

	if phase == v1alpha1.PhaseWaitingCooldown {
		cond := GetCondition(nr, v1alpha1.NodeRefreshConditionType(v1alpha1.PhaseWaitingCooldown))
		cooldown := time.Duration(nr.Spec.NodeCooldownSeconds) * time.Second

		switch {
		case cond == nil || cond.LastTransitionTime.IsZero():
			SetPhase(nr, v1alpha1.PhaseIdle, v1alpha1.ReasonCooldownCorrupt, "cooldown condition missing or malformed, resetting to Idle")
			phase = v1alpha1.PhaseIdle
			changed = true
		case now.Sub(cond.LastTransitionTime.Time) >= cooldown:
			SetPhase(nr, v1alpha1.PhaseIdle, v1alpha1.ReasonCooldownFinished, "cooldown finished")
			phase = v1alpha1.PhaseIdle
			changed = true
		default:
			return false
		}
	}

	if phase == v1alpha1.PhaseIdle || phase == v1alpha1.PhaseSucceeded || phase == v1alpha1.PhaseFailed {
		if refreshDue(nr, now) {
			SetCurrentNode(nr, "")
			SetPhase(nr, v1alpha1.PhaseFindingNodes, v1alpha1.ReasonScheduleDue, "refresh cycle triggered by schedule")
			changed = true
		}
	}

	return changed
}

// refreshDue reports whether enough time has passed since the last
// successful refresh for a new cycle to start.
func refreshDue(nr *v1alpha1.NodeRefresh, now time.Time) bool {
	if nr.Status.LastRefreshTimestamp == nil || nr.Status.LastRefreshTimestamp.IsZero() {
		return true
	}
	interval := time.Duration(nr.Spec.RefreshScheduleDays) * 24 * time.Hour
	return now.Sub(nr.Status.LastRefreshTimestamp.Time) >= interval
}
