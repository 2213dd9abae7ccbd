package nodemgr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nexuscore/nexuscore/pkg/apierr"
	"github.com/nexuscore/nexuscore/pkg/nodemgr"
	"github.com/nexuscore/nexuscore/pkg/runtime"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_StoresNodeAndAllocatedCeiling(t *testing.T) {
	ctx := context.Background()
	driver := runtime.NewFakeDriver()
	store := storage.NewMemoryStore()
	mgr := nodemgr.New(store, driver)

	node, err := mgr.Create(ctx, 4, 2048)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOnline, node.Status)
	assert.Equal(t, 4, node.Resources.CPUCount)
	assert.Equal(t, int64(2048<<20), node.Resources.MemoryTotalBytes)

	fetched, err := mgr.Get(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, node.ID, fetched.ID)
}

func TestGet_UnknownNodeReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	mgr := nodemgr.New(storage.NewMemoryStore(), runtime.NewFakeDriver())

	_, err := mgr.Get(ctx, "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
}

func TestUpdateResources_ClampsToAllocatedCeiling(t *testing.T) {
	ctx := context.Background()
	driver := runtime.NewFakeDriver()
	mgr := nodemgr.New(storage.NewMemoryStore(), driver)

	node, err := mgr.Create(ctx, 2, 1024)
	require.NoError(t, err)

	// A heartbeat reporting more CPU/memory than the node was allocated
	// with must be clamped down to the allocated ceiling.
	observed := types.NodeResources{
		CPUCount:         999,
		MemoryTotalBytes: 999 << 30,
		MemoryAvailBytes: 999 << 30,
	}
	updated, err := mgr.UpdateResources(ctx, node.ID, observed)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Resources.CPUCount)
	assert.Equal(t, int64(1024<<20), updated.Resources.MemoryTotalBytes)
	assert.Equal(t, int64(1024<<20), updated.Resources.MemoryAvailBytes)
	require.NotNil(t, updated.LastHeartbeat)
}

func TestUpdateResources_UnknownNodeFailsSoft(t *testing.T) {
	ctx := context.Background()
	mgr := nodemgr.New(storage.NewMemoryStore(), runtime.NewFakeDriver())

	node, err := mgr.UpdateResources(ctx, "missing", types.NodeResources{})
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestDelete_RemovesNodeAndItsPods(t *testing.T) {
	ctx := context.Background()
	driver := runtime.NewFakeDriver()
	store := storage.NewMemoryStore()
	typed := storage.NewTyped(store)
	mgr := nodemgr.New(store, driver)

	node, err := mgr.Create(ctx, 4, 4096)
	require.NoError(t, err)

	pod := &types.Pod{ID: "p1", Name: "p1", NodeID: node.ID, Status: types.PodStatusRunning}
	require.NoError(t, typed.PutPod(ctx, pod))
	require.NoError(t, typed.AddToSet(ctx, storage.SetPods, "p1"))
	require.NoError(t, typed.AddToSet(ctx, storage.NodePodsSet(node.ID), "p1"))

	require.NoError(t, mgr.Delete(ctx, node.ID))

	_, err = mgr.Get(ctx, node.ID)
	assert.True(t, errors.Is(err, apierr.ErrNotFound))

	_, found, err := typed.GetPod(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete_RuntimeFailureLeavesNodeIntact(t *testing.T) {
	ctx := context.Background()
	driver := runtime.NewFakeDriver()
	store := storage.NewMemoryStore()
	mgr := nodemgr.New(store, driver)

	node, err := mgr.Create(ctx, 2, 512)
	require.NoError(t, err)

	driver.FailNext = true
	err = mgr.Delete(ctx, node.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.ErrRuntimeFailure))

	_, err = mgr.Get(ctx, node.ID)
	assert.NoError(t, err, "node must still exist after a failed runtime delete")
}
