// Package hostmon samples the host's own CPU and memory capacity via
// gopsutil and merges it into the stored host:resources record,
// preserving whatever limit percentages an operator has configured.
package hostmon

import (
	"context"
	"fmt"

	"github.com/nexuscore/nexuscore/pkg/log"
	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Monitor samples host capacity and persists it.
type Monitor struct {
	store  *storage.Typed
	logger zerolog.Logger
}

// New creates a Monitor wrapping a state store.
func New(store storage.Store) *Monitor {
	return &Monitor{
		store:  storage.NewTyped(store),
		logger: log.WithComponent("hostmon"),
	}
}

// Sample reads the host's current CPU count and memory totals and
// merges them into the stored host:resources record, leaving
// cpu_limit_percent/memory_limit_percent untouched if already set.
func (m *Monitor) Sample(ctx context.Context) (*types.HostResource, error) {
	counts, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("hostmon: cpu count: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("hostmon: virtual memory: %w", err)
	}

	existing, found, err := m.store.GetHostResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("hostmon: get host resources: %w", err)
	}

	host := types.DefaultHostResource()
	if found {
		host.CPULimitPercent = existing.CPULimitPercent
		host.MemoryLimitPercent = existing.MemoryLimitPercent
	}
	host.CPUCount = counts
	host.MemoryTotalBytes = int64(vm.Total)
	host.MemoryAvailBytes = int64(vm.Available)

	if err := m.store.PutHostResources(ctx, &host); err != nil {
		return nil, fmt.Errorf("hostmon: store host resources: %w", err)
	}
	m.logger.Debug().
		Int("cpu_count", host.CPUCount).
		Int64("memory_total_bytes", host.MemoryTotalBytes).
		Msg("host resources sampled")
	return &host, nil
}

// UpdateLimits sets the operator-configured cpu/memory limit
// percentages, rejecting values above types.MaxLimitPercent.
func (m *Monitor) UpdateLimits(ctx context.Context, limits types.ResourceLimits) (*types.HostResource, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("hostmon: %w", err)
	}

	host, found, err := m.store.GetHostResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("hostmon: get host resources: %w", err)
	}
	if !found {
		h := types.DefaultHostResource()
		host = &h
	}
	host.CPULimitPercent = limits.CPULimitPercent
	host.MemoryLimitPercent = limits.MemoryLimitPercent

	if err := m.store.PutHostResources(ctx, host); err != nil {
		return nil, fmt.Errorf("hostmon: store host resources: %w", err)
	}
	return host, nil
}

// Get returns the current host resource record, defaulting if unset.
func (m *Monitor) Get(ctx context.Context) (*types.HostResource, error) {
	host, found, err := m.store.GetHostResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("hostmon: get host resources: %w", err)
	}
	if !found {
		h := types.DefaultHostResource()
		return &h, nil
	}
	return host, nil
}
