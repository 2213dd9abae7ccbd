package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexuscore/nexuscore/pkg/types"
)

// Typed is a thin JSON-encoding convenience layer over Store,
// mirroring the store_node/get_node-style wrapper methods the
// original Redis client used over plain get/set — kept here so every
// backend gets it for free instead of reimplementing encoding three
// times.
type Typed struct {
	Store
}

// NewTyped wraps a Store with typed record accessors.
func NewTyped(s Store) *Typed { return &Typed{Store: s} }

func getJSON[T any](ctx context.Context, s Store, key string) (*T, bool, error) {
	data, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, true, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return &v, true, nil
}

func putJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

func (t *Typed) GetNode(ctx context.Context, id string) (*types.Node, bool, error) {
	return getJSON[types.Node](ctx, t.Store, NodeKey(id))
}

func (t *Typed) PutNode(ctx context.Context, n *types.Node) error {
	return putJSON(ctx, t.Store, NodeKey(n.ID), n)
}

func (t *Typed) ListNodes(ctx context.Context) ([]*types.Node, error) {
	ids, err := t.Members(ctx, SetNodes)
	if err != nil {
		return nil, err
	}
	nodes := make([]*types.Node, 0, len(ids))
	for _, id := range ids {
		n, found, err := t.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (t *Typed) GetAllocated(ctx context.Context, nodeID string) (*types.AllocatedResources, bool, error) {
	return getJSON[types.AllocatedResources](ctx, t.Store, AllocatedKey(nodeID))
}

func (t *Typed) PutAllocated(ctx context.Context, nodeID string, a *types.AllocatedResources) error {
	return putJSON(ctx, t.Store, AllocatedKey(nodeID), a)
}

func (t *Typed) GetPod(ctx context.Context, id string) (*types.Pod, bool, error) {
	return getJSON[types.Pod](ctx, t.Store, PodKey(id))
}

func (t *Typed) PutPod(ctx context.Context, p *types.Pod) error {
	return putJSON(ctx, t.Store, PodKey(p.ID), p)
}

func (t *Typed) ListPods(ctx context.Context) ([]*types.Pod, error) {
	ids, err := t.Members(ctx, SetPods)
	if err != nil {
		return nil, err
	}
	pods := make([]*types.Pod, 0, len(ids))
	for _, id := range ids {
		p, found, err := t.GetPod(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			pods = append(pods, p)
		}
	}
	return pods, nil
}

// ListNodePods returns the pods placed on node id, per the
// node:{id}:pods membership set.
func (t *Typed) ListNodePods(ctx context.Context, nodeID string) ([]*types.Pod, error) {
	ids, err := t.Members(ctx, NodePodsSet(nodeID))
	if err != nil {
		return nil, err
	}
	pods := make([]*types.Pod, 0, len(ids))
	for _, id := range ids {
		p, found, err := t.GetPod(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			pods = append(pods, p)
		}
	}
	return pods, nil
}

// DeletePod removes a pod record and its membership in both the
// global pods set and its node's pod set, write-ordered per the
// cross-key consistency notes: membership before record.
func (t *Typed) DeletePod(ctx context.Context, p *types.Pod) error {
	if p.NodeID != "" {
		if err := t.RemoveFromSet(ctx, NodePodsSet(p.NodeID), p.ID); err != nil {
			return err
		}
	}
	return t.DeleteWithSet(ctx, PodKey(p.ID), SetPods, p.ID)
}

func (t *Typed) GetHostResources(ctx context.Context) (*types.HostResource, bool, error) {
	return getJSON[types.HostResource](ctx, t.Store, KeyHostResources)
}

func (t *Typed) PutHostResources(ctx context.Context, h *types.HostResource) error {
	return putJSON(ctx, t.Store, KeyHostResources, h)
}
