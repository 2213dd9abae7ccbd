// Package fault implements the Fault Handler: marking overloaded
// nodes offline, failing the pods they were carrying, and sweeping
// offline nodes' leftover pod records away.
package fault

import (
	"context"
	"fmt"

	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/metrics"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/rs/zerolog"
)

// Handler marks nodes offline on failure and reclaims their pods.
type Handler struct {
	store  *storage.Typed
	logger zerolog.Logger
}

// New creates a Handler wrapping a state store.
func New(store storage.Store) *Handler {
	return &Handler{
		store:  storage.NewTyped(store),
		logger: log.WithComponent("fault"),
	}
}

// HandleResourceFailure marks node offline and every pod it was
// carrying as failed, returning the pods affected.
func (h *Handler) HandleResourceFailure(ctx context.Context, node *types.Node) ([]*types.Pod, error) {
	pods, err := h.store.ListNodePods(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("fault: list pods of node %s: %w", node.ID, err)
	}

	node.Status = types.NodeStatusOffline
	if err := h.store.PutNode(ctx, node); err != nil {
		return nil, fmt.Errorf("fault: mark node %s offline: %w", node.ID, err)
	}

	for _, pod := range pods {
		pod.Status = types.PodStatusFailed
		if err := h.store.PutPod(ctx, pod); err != nil {
			return nil, fmt.Errorf("fault: mark pod %s failed: %w", pod.ID, err)
		}
		metrics.PodsFailedTotal.Inc()
	}

	h.logger.Warn().
		Str("node_id", node.ID).
		Int("pods_affected", len(pods)).
		Msg("resource failure handled")
	metrics.OverloadDetectionsTotal.Inc()
	return pods, nil
}

// CleanupNode deletes every pod record placed on node_id and marks
// the node offline, leaving the node record itself in place for
// operator inspection.
func (h *Handler) CleanupNode(ctx context.Context, nodeID string) error {
	pods, err := h.store.ListNodePods(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("fault: list pods of node %s: %w", nodeID, err)
	}
	for _, pod := range pods {
		if err := h.store.DeletePod(ctx, pod); err != nil {
			return fmt.Errorf("fault: delete pod %s: %w", pod.ID, err)
		}
		h.logger.Info().Str("pod_id", pod.ID).Str("node_id", nodeID).Msg("pod cleaned up")
	}

	node, found, err := h.store.GetNode(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("fault: get node %s: %w", nodeID, err)
	}
	if found {
		node.Status = types.NodeStatusOffline
		if err := h.store.PutNode(ctx, node); err != nil {
			return fmt.Errorf("fault: mark node %s offline: %w", nodeID, err)
		}
		metrics.NodesCleanedTotal.Inc()
	}
	return nil
}

// CleanupStaleResources sweeps every offline node and reclaims its
// leftover pods. cmd/nexuscored runs it once, on process shutdown.
func (h *Handler) CleanupStaleResources(ctx context.Context) error {
	nodes, err := h.store.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("fault: list nodes: %w", err)
	}
	for _, node := range nodes {
		if node.Status != types.NodeStatusOffline {
			continue
		}
		if err := h.CleanupNode(ctx, node.ID); err != nil {
			h.logger.Error().Err(err).Str("node_id", node.ID).Msg("stale resource cleanup failed")
		}
	}
	h.logger.Info().Msg("stale resource cleanup completed")
	return nil
}
