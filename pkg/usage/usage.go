// Package usage computes a node's current resource consumption from
// its placed pods — the arithmetic in §4.3 step 2, shared verbatim by
// the scheduler, the health monitor, and the HTTP API's resource and
// health views so they never disagree about what "used" means.
package usage

import (
	"context"
	"fmt"

	"github.com/nexuscore/nexuscore/pkg/storage"
	"github.com/nexuscore/nexuscore/pkg/types"
)

// Of sums cpu_cores and memory_mb (converted to bytes) over every pod
// in node id's pod set, regardless of pod status (invariant 6).
func Of(ctx context.Context, store *storage.Typed, nodeID string) (cpu float64, memoryBytes int64, err error) {
	pods, err := store.ListNodePods(ctx, nodeID)
	if err != nil {
		return 0, 0, fmt.Errorf("usage: list pods of node %s: %w", nodeID, err)
	}
	for _, p := range pods {
		cpu += p.Resources.CPUCores
		memoryBytes += p.Resources.MemoryBytes()
	}
	return cpu, memoryBytes, nil
}

// Available returns a node's remaining CPU and memory given its
// current usage, per §4.3 step 3: available_memory is clamped both
// by the live memory_available reading and by total minus used.
func Available(node *types.Node, usedCPU float64, usedMemoryBytes int64) (availCPU float64, availMemory int64) {
	availCPU = float64(node.Resources.CPUCount) - usedCPU
	availMemory = node.Resources.MemoryAvailBytes
	if rem := node.Resources.MemoryTotalBytes - usedMemoryBytes; rem < availMemory {
		availMemory = rem
	}
	return availCPU, availMemory
}

// UtilizationPercent returns cpu/memory utilization as percentages of
// capacity, per §4.4 step 2 ("used values defined exactly as in
// §4.3 step 2"). Returns 0 when capacity is 0 to avoid division by zero.
func UtilizationPercent(node *types.Node, usedCPU float64, usedMemoryBytes int64) (cpuPct, memPct float64) {
	if node.Resources.CPUCount > 0 {
		cpuPct = usedCPU / float64(node.Resources.CPUCount) * 100
	}
	if node.Resources.MemoryTotalBytes > 0 {
		memPct = float64(usedMemoryBytes) / float64(node.Resources.MemoryTotalBytes) * 100
	}
	return cpuPct, memPct
}
