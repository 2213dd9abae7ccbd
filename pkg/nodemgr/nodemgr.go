// Package nodemgr implements the Node Manager: node CRUD, status
// transitions, and the resource-update reconciliation contract that
// clamps observed reports to a node's allocated ceiling.
package nodemgr

import (
	"context"
	"fmt"
	"time"

	"github.com/nexuscore/nexuscore/pkg/apierr"
	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/runtime"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/rs/zerolog"
)

// Manager is the sole writer of node and allocation records.
type Manager struct {
	store   *storage.Typed
	runtime runtime.Driver
	logger  zerolog.Logger
}

// New creates a Manager wrapping a state store and a runtime driver.
func New(store storage.Store, driver runtime.Driver) *Manager {
	return &Manager{
		store:   storage.NewTyped(store),
		runtime: driver,
		logger:  log.WithComponent("nodemgr"),
	}
}

// Create asks the runtime driver to instantiate a container pinned to
// cpuCount/memoryMB, then stores the Node and its AllocatedResources
// companion record. No Node record is written if the driver fails.
func (m *Manager) Create(ctx context.Context, cpuCount int, memoryMB int64) (*types.Node, error) {
	id, hostname, address, err := m.runtime.CreateContainer(ctx, cpuCount, memoryMB)
	if err != nil {
		return nil, fmt.Errorf("nodemgr: create container: %w: %v", apierr.ErrRuntimeFailure, err)
	}

	memoryBytes := memoryMB * (1 << 20)
	node := &types.Node{
		ID:       id,
		Hostname: hostname,
		Address:  address,
		Status:   types.NodeStatusOnline,
		Resources: types.NodeResources{
			CPUCount:         cpuCount,
			MemoryTotalBytes: memoryBytes,
			MemoryAvailBytes: memoryBytes,
		},
		CreatedAt: time.Now(),
	}
	allocated := &types.AllocatedResources{
		CPUCount:         cpuCount,
		MemoryTotalBytes: memoryBytes,
	}

	if err := m.store.PutAllocated(ctx, id, allocated); err != nil {
		return nil, fmt.Errorf("nodemgr: store allocated resources: %w: %v", apierr.ErrStoreFailure, err)
	}
	if err := m.store.PutNode(ctx, node); err != nil {
		return nil, fmt.Errorf("nodemgr: store node: %w: %v", apierr.ErrStoreFailure, err)
	}
	if err := m.store.AddToSet(ctx, storage.SetNodes, id); err != nil {
		return nil, fmt.Errorf("nodemgr: add node to set: %w: %v", apierr.ErrStoreFailure, err)
	}

	m.logger.Info().Str("node_id", id).Str("hostname", hostname).Msg("node created")
	return node, nil
}

// Get returns the node with the given id, or apierr.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*types.Node, error) {
	node, found, err := m.store.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("nodemgr: get node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	if !found {
		return nil, fmt.Errorf("nodemgr: node %s: %w", id, apierr.ErrNotFound)
	}
	return node, nil
}

// List returns every registered node.
func (m *Manager) List(ctx context.Context) ([]*types.Node, error) {
	nodes, err := m.store.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("nodemgr: list nodes: %w: %v", apierr.ErrStoreFailure, err)
	}
	return nodes, nil
}

// UpdateStatus sets a node's status. Fails soft: an unknown node id
// returns (nil, nil) rather than an error, per §4.2.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status types.NodeStatus) (*types.Node, error) {
	node, found, err := m.store.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("nodemgr: get node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	if !found {
		return nil, nil
	}
	node.Status = status
	if err := m.store.PutNode(ctx, node); err != nil {
		return nil, fmt.Errorf("nodemgr: store node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	return node, nil
}

// UpdateResources is the reconciliation contract (§4.2): observed
// reports never raise the allocated ceiling.
func (m *Manager) UpdateResources(ctx context.Context, id string, observed types.NodeResources) (*types.Node, error) {
	node, found, err := m.store.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("nodemgr: get node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	if !found {
		return nil, nil
	}

	allocated, found, err := m.store.GetAllocated(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("nodemgr: get allocated resources %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	if found {
		observed.CPUCount = allocated.CPUCount
		observed.MemoryTotalBytes = allocated.MemoryTotalBytes
	}
	if observed.MemoryAvailBytes > observed.MemoryTotalBytes {
		observed.MemoryAvailBytes = observed.MemoryTotalBytes
	}

	node.Resources = observed
	now := time.Now()
	node.LastHeartbeat = &now

	if err := m.store.PutNode(ctx, node); err != nil {
		return nil, fmt.Errorf("nodemgr: store node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	return node, nil
}

// Stop invokes the runtime driver and, on success, marks the node
// offline.
func (m *Manager) Stop(ctx context.Context, id string) (*types.Node, error) {
	node, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.runtime.Stop(ctx, id); err != nil {
		return nil, fmt.Errorf("nodemgr: stop node %s: %w: %v", id, apierr.ErrRuntimeFailure, err)
	}
	node.Status = types.NodeStatusOffline
	if err := m.store.PutNode(ctx, node); err != nil {
		return nil, fmt.Errorf("nodemgr: store node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	return node, nil
}

// Restart invokes the runtime driver and, on success, marks the node
// online.
func (m *Manager) Restart(ctx context.Context, id string) (*types.Node, error) {
	node, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.runtime.Restart(ctx, id); err != nil {
		return nil, fmt.Errorf("nodemgr: restart node %s: %w: %v", id, apierr.ErrRuntimeFailure, err)
	}
	node.Status = types.NodeStatusOnline
	if err := m.store.PutNode(ctx, node); err != nil {
		return nil, fmt.Errorf("nodemgr: store node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	return node, nil
}

// Delete deletes the node's container, then every pod placed on it,
// then the node record itself. If the runtime delete fails, nothing
// is touched — the operator is left to retry.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}

	if err := m.runtime.Delete(ctx, id); err != nil {
		return fmt.Errorf("nodemgr: delete container %s: %w: %v", id, apierr.ErrRuntimeFailure, err)
	}

	pods, err := m.store.ListNodePods(ctx, id)
	if err != nil {
		return fmt.Errorf("nodemgr: list pods of node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	for _, pod := range pods {
		if err := m.store.DeletePod(ctx, pod); err != nil {
			return fmt.Errorf("nodemgr: delete pod %s: %w: %v", pod.ID, apierr.ErrStoreFailure, err)
		}
	}

	if err := m.store.DeleteWithSet(ctx, storage.NodeKey(id), storage.SetNodes, id); err != nil {
		return fmt.Errorf("nodemgr: delete node %s: %w: %v", id, apierr.ErrStoreFailure, err)
	}
	m.logger.Info().Str("node_id", id).Int("pods_removed", len(pods)).Msg("node deleted")
	return nil
}
