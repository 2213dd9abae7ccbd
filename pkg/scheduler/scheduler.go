package scheduler

import (
	"context"
	"fmt"

	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/metrics"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/nexuscore/nexuscore/pkg/usage"
	"github.com/rs/zerolog"
)

// Scheduler places a pod onto an online node using best-fit-by-CPU-slack.
type Scheduler struct {
	store  *storage.Typed
	logger zerolog.Logger
}

// New creates a Scheduler wrapping a state store.
func New(store storage.Store) *Scheduler {
	return &Scheduler{
		store:  storage.NewTyped(store),
		logger: log.WithComponent("scheduler"),
	}
}

// Schedule implements the best-fit algorithm in §4.3. It returns the
// chosen node, or (nil, false) if no online node fits — the caller
// is responsible for persisting the pod as pending in that case.
func (s *Scheduler) Schedule(ctx context.Context, pod *types.Pod) (*types.Node, bool, error) {
	timer := metrics.NewTimer()
	metrics.SchedulingAttemptsTotal.Inc()

	nodes, err := s.store.ListNodes(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("scheduler: list nodes: %w", err)
	}

	var best *types.Node
	bestSlack := 0.0

	for _, node := range nodes {
		if node.Status != types.NodeStatusOnline {
			continue
		}

		usedCPU, usedMem, err := usage.Of(ctx, s.store, node.ID)
		if err != nil {
			return nil, false, fmt.Errorf("scheduler: %w", err)
		}

		availCPU, availMem := usage.Available(node, usedCPU, usedMem)
		if availCPU < pod.Resources.CPUCores || availMem < pod.Resources.MemoryBytes() {
			continue
		}

		slack := availCPU - pod.Resources.CPUCores
		if best == nil || slack < bestSlack {
			best = node
			bestSlack = slack
		}
	}

	if best == nil {
		metrics.SchedulingFailuresTotal.Inc()
		s.logger.Warn().Str("pod_id", pod.ID).Msg("no node fits pod")
		return nil, false, nil
	}

	timer.ObserveDuration(metrics.SchedulingLatency)
	s.logger.Info().
		Str("pod_id", pod.ID).
		Str("node_id", best.ID).
		Float64("post_slack_cpu", bestSlack).
		Msg("pod placed")
	return best, true, nil
}

// Commit writes the placement: the pod record with node_id/running
// set, and its membership in both the global pods set and the node's
// pod set. Called by the caller (pkg/api) after Schedule succeeds.
func (s *Scheduler) Commit(ctx context.Context, pod *types.Pod, node *types.Node) error {
	pod.NodeID = node.ID
	pod.Status = types.PodStatusRunning

	if err := s.store.PutPod(ctx, pod); err != nil {
		return fmt.Errorf("scheduler: store pod %s: %w", pod.ID, err)
	}
	if err := s.store.AddToSet(ctx, storage.SetPods, pod.ID); err != nil {
		return fmt.Errorf("scheduler: add pod %s to pods set: %w", pod.ID, err)
	}
	if err := s.store.AddToSet(ctx, storage.NodePodsSet(node.ID), pod.ID); err != nil {
		return fmt.Errorf("scheduler: add pod %s to node set: %w", pod.ID, err)
	}
	return nil
}
