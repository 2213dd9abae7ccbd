package health

import (
	"context"
	"testing"
	"time"

	"github.com/nexuscore/nexuscore/pkg/fault"
	"github.com/nexuscore/nexuscore/pkg/hostmon"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOnlineNode(id string, cpu int, memBytes int64, lastHeartbeat time.Time) *types.Node {
	return &types.Node{
		ID:     id,
		Status: types.NodeStatusOnline,
		Resources: types.NodeResources{
			CPUCount:         cpu,
			MemoryTotalBytes: memBytes,
			MemoryAvailBytes: memBytes,
		},
		LastHeartbeat: &lastHeartbeat,
		CreatedAt:     time.Now(),
	}
}

func TestCheckNodesLiveness_MarksStaleNodeOffline(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	store := storage.NewTyped(mem)

	stale := newOnlineNode("n-stale", 4, 4<<30, time.Now().Add(-10*time.Minute))
	fresh := newOnlineNode("n-fresh", 4, 4<<30, time.Now())
	require.NoError(t, store.PutNode(ctx, stale))
	require.NoError(t, store.PutNode(ctx, fresh))
	require.NoError(t, store.AddToSet(ctx, storage.SetNodes, "n-stale"))
	require.NoError(t, store.AddToSet(ctx, storage.SetNodes, "n-fresh"))

	m := New(mem, hostmon.New(mem), fault.New(mem), Config{})
	require.NoError(t, m.checkNodesLiveness(ctx))

	reloadedStale, _, err := store.GetNode(ctx, "n-stale")
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOffline, reloadedStale.Status)

	reloadedFresh, _, err := store.GetNode(ctx, "n-fresh")
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOnline, reloadedFresh.Status)
}

func TestCheckClusterUtilization_HandsOverloadedNodeToFaultHandler(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	store := storage.NewTyped(mem)

	node := newOnlineNode("n1", 4, 4<<30, time.Now())
	require.NoError(t, store.PutNode(ctx, node))
	require.NoError(t, store.AddToSet(ctx, storage.SetNodes, "n1"))

	// 4 CPU cores used against a 4-core node: 100% utilization, above
	// the default 50% cpu_limit_percent.
	p := &types.Pod{
		ID:        "p1",
		Name:      "p1",
		NodeID:    "n1",
		Status:    types.PodStatusRunning,
		Resources: types.PodResources{CPUCores: 4, MemoryMB: 128},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.PutPod(ctx, p))
	require.NoError(t, store.AddToSet(ctx, storage.NodePodsSet("n1"), "p1"))

	fh := fault.New(mem)
	m := New(mem, hostmon.New(mem), fh, Config{})
	require.NoError(t, m.checkClusterUtilization(ctx))

	reloaded, _, err := store.GetNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOffline, reloaded.Status, "overloaded node should be marked offline by the fault handler")

	storedPod, _, err := store.GetPod(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.PodStatusFailed, storedPod.Status)
}

func TestCheckClusterUtilization_WithinLimitsLeavesNodeUntouched(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	store := storage.NewTyped(mem)

	node := newOnlineNode("n1", 8, 8<<30, time.Now())
	require.NoError(t, store.PutNode(ctx, node))
	require.NoError(t, store.AddToSet(ctx, storage.SetNodes, "n1"))

	p := &types.Pod{
		ID:        "p1",
		Name:      "p1",
		NodeID:    "n1",
		Status:    types.PodStatusRunning,
		Resources: types.PodResources{CPUCores: 1, MemoryMB: 128},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.PutPod(ctx, p))
	require.NoError(t, store.AddToSet(ctx, storage.NodePodsSet("n1"), "p1"))

	m := New(mem, hostmon.New(mem), fault.New(mem), Config{})
	require.NoError(t, m.checkClusterUtilization(ctx))

	reloaded, _, err := store.GetNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOnline, reloaded.Status)
}
