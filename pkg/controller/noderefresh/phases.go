package noderefresh

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/example/noderefresh-operator/pkg/apis/noderefresh/v1alpha1"
	"github.com/example/noderefresh-operator/pkg/audit"
	"github.com/example/noderefresh-operator/pkg/logging"
)

// PhaseHandler processes one reconciler-owned phase and reports what
// happened; it never returns ctrl.Result/error directly so it stays
// trivially testable against a fake Gateway.
type PhaseHandler interface {
	Handle(ctx context.Context, nr *v1alpha1.NodeRefresh, logger *zap.Logger) Outcome
}

// StateMachine dispatches to the handler registered for the object's
// current phase. Only FindingNodes and ProcessingNode have handlers here;
// the remaining phases are driven by the scheduler tick, not the
// reconciler (see scheduler.go).
type StateMachine struct {
	handlers map[v1alpha1.NodeRefreshPhase]PhaseHandler
}

// NewStateMachine wires the reconciler-owned phase handlers to gw and d.
func NewStateMachine(gw Gateway, d *Drainer) *StateMachine {
	return &StateMachine{
		handlers: map[v1alpha1.NodeRefreshPhase]PhaseHandler{
			v1alpha1.PhaseFindingNodes:   &findingNodesHandler{gateway: gw},
			v1alpha1.PhaseProcessingNode: &processingNodeHandler{gateway: gw, drainer: d},
		},
	}
}

// Handle dispatches to the handler for nr's current phase. Callers must
// guard against phases with no handler themselves (see controller.go); this
// keeps the map intentionally partial rather than papering over the
// distinction with a no-op default.
func (sm *StateMachine) Handle(ctx context.Context, nr *v1alpha1.NodeRefresh, logger *zap.Logger) (Outcome, bool) {
	handler, ok := sm.handlers[nr.Status.Phase]
	if !ok {
		return Outcome{}, false
	}
	return handler.Handle(ctx, nr, logger), true
}

// findingNodesHandler selects a target node to process next.
type findingNodesHandler struct {
	gateway Gateway
}

func (h *findingNodesHandler) Handle(ctx context.Context, nr *v1alpha1.NodeRefresh, logger *zap.Logger) Outcome {
	matched, err := h.gateway.ListNodes(ctx, nr.Spec.TargetNodeLabels)
	if err != nil {
		if CategoryOf(err) == CategoryFatal {
			SetPhase(nr, v1alpha1.PhaseFailed, v1alpha1.ReasonNoTargetNodes, err.Error())
			return Done()
		}
		return RetryAfter(RetryDelay)
	}

	if len(matched) == 0 {
		logging.LogPhaseTransition(logger, nr.Name, string(nr.Status.Phase), string(v1alpha1.PhaseIdle), v1alpha1.ReasonNoTargetNodes)
		audit.GetGlobalAuditLogger().LogRefreshCycle(ctx, nr.Name, nr.Namespace, audit.EventNoTargetNodes, "no nodes match targetNodeLabels", nil)
		SetPhase(nr, v1alpha1.PhaseIdle, v1alpha1.ReasonNoTargetNodes, "no nodes match targetNodeLabels")
		return Done()
	}

	selectable := FilterSelectable(matched, "")
	if len(selectable) == 0 {
		logger.Info("no selectable nodes among matched set, waiting for one to become ready",
			zap.Int("matched", len(matched)))
		return RetryAfter(2 * RetryDelay)
	}

	chosen := selectable[rand.Intn(len(selectable))]
	SetCurrentNode(nr, chosen.Name)
	logging.LogPhaseTransition(logger, nr.Name, string(nr.Status.Phase), string(v1alpha1.PhaseProcessingNode), v1alpha1.ReasonNodeSelected)
	audit.GetGlobalAuditLogger().LogRefreshCycle(ctx, nr.Name, nr.Namespace, audit.EventNodeSelected, "node selected for refresh", map[string]interface{}{"node": chosen.Name})
	SetPhase(nr, v1alpha1.PhaseProcessingNode, v1alpha1.ReasonNodeSelected, fmt.Sprintf("selected node %s for refresh", chosen.Name))
	return Done()
}

// processingNodeHandler drains the node recorded in status.currentNode and
// decides the post-drain transition.
type processingNodeHandler struct {
	gateway Gateway
	drainer *Drainer
}

func (h *processingNodeHandler) Handle(ctx context.Context, nr *v1alpha1.NodeRefresh, logger *zap.Logger) Outcome {
	nodeName := nr.Status.CurrentNode

	node, err := h.gateway.GetNode(ctx, nodeName)
	if err != nil {
		if CategoryOf(err) == CategoryNotFound {
			SetPhase(nr, v1alpha1.PhaseFindingNodes, v1alpha1.ReasonNodeVanished, fmt.Sprintf("node %s no longer exists", nodeName))
			return Done()
		}
		return RetryAfter(RetryDelay)
	}

	if !MatchesLabels(node, nr.Spec.TargetNodeLabels) {
		SetPhase(nr, v1alpha1.PhaseFindingNodes, v1alpha1.ReasonLabelsChanged, fmt.Sprintf("node %s no longer matches targetNodeLabels", nodeName))
		return Done()
	}

	matched, err := h.gateway.ListNodes(ctx, nr.Spec.TargetNodeLabels)
	if err != nil {
		return RetryAfter(RetryDelay)
	}
	if len(FilterSelectable(matched, nodeName)) == 0 {
		logger.Info("no replacement node available yet, deferring drain",
			zap.String("node", nodeName))
		return RetryAfter(3 * RetryDelay)
	}

	if err := h.drainer.DrainNode(ctx, nodeName, logger); err != nil {
		if CategoryOf(err) == CategoryFatal {
			logging.LogDrainOutcome(logger, nodeName, false, err.Error())
			audit.GetGlobalAuditLogger().LogRefreshCycle(ctx, nr.Name, nr.Namespace, audit.EventRefreshFailed, "drain failed", map[string]interface{}{"node": nodeName, "reason": err.Error()})
			SetPhase(nr, v1alpha1.PhaseFailed, v1alpha1.ReasonDrainFailed, err.Error())
			return Done()
		}
		logger.Warn("drain attempt did not complete, will re-enter ProcessingNode",
			zap.String("node", nodeName), zap.Error(err))
		return RetryAfter(RetryDelay)
	}

	logging.LogDrainOutcome(logger, nodeName, true, "")

	if err := h.drainer.Uncordon(ctx, nodeName); err != nil {
		SetExplicitCondition(nr, v1alpha1.ConditionWarning, metav1.ConditionTrue, v1alpha1.ReasonUncordonFailed, err.Error())
	}

	remaining, err := h.gateway.ListNodes(ctx, nr.Spec.TargetNodeLabels)
	var others int
	if err == nil {
		others = len(FilterSelectable(remaining, nodeName))
	}

	now := metav1.Now()
	SetLastRefreshTimestamp(nr, now)
	SetCurrentNode(nr, "")

	if others >= 1 {
		logging.LogPhaseTransition(logger, nr.Name, string(nr.Status.Phase), string(v1alpha1.PhaseWaitingCooldown), v1alpha1.ReasonDrainSucceeded)
		audit.GetGlobalAuditLogger().LogRefreshCycle(ctx, nr.Name, nr.Namespace, audit.EventCooldownStarted, "drain succeeded, entering cooldown", map[string]interface{}{"node": nodeName})
		SetPhase(nr, v1alpha1.PhaseWaitingCooldown, v1alpha1.ReasonDrainSucceeded, fmt.Sprintf("drained %s, waiting cooldown before next cycle", nodeName))
	} else {
		logging.LogPhaseTransition(logger, nr.Name, string(nr.Status.Phase), string(v1alpha1.PhaseSucceeded), v1alpha1.ReasonDrainSucceeded)
		audit.GetGlobalAuditLogger().LogRefreshCycle(ctx, nr.Name, nr.Namespace, audit.EventRefreshSucceeded, "refresh cycle succeeded", map[string]interface{}{"node": nodeName})
		SetPhase(nr, v1alpha1.PhaseSucceeded, v1alpha1.ReasonDrainSucceeded, fmt.Sprintf("drained %s, no further target nodes remain", nodeName))
	}
	return Done()
}
