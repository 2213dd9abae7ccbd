// Package types defines the control plane's durable records: Node,
// AllocatedResources, Pod and HostResource. Records are closed,
// struct-typed and validate themselves on decode so that the
// invariants they carry (capacity ceilings, status enums, percentage
// limits) are enforced at the boundary rather than scattered across
// callers.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeStatus is the liveness state of a registered node.
type NodeStatus string

const (
	NodeStatusOnline  NodeStatus = "online"
	NodeStatusOffline NodeStatus = "offline"
)

// Valid reports whether s is a recognized NodeStatus.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeStatusOnline, NodeStatusOffline:
		return true
	default:
		return false
	}
}

// PodStatus is the lifecycle state of a pod.
type PodStatus string

const (
	PodStatusPending PodStatus = "pending"
	PodStatusRunning PodStatus = "running"
	PodStatusFailed  PodStatus = "failed"
)

// Valid reports whether s is a recognized PodStatus.
func (s PodStatus) Valid() bool {
	switch s {
	case PodStatusPending, PodStatusRunning, PodStatusFailed:
		return true
	default:
		return false
	}
}

// NodeResources is a node's capacity triple: how many CPUs it has,
// how much memory it has in total, and how much of that memory is
// currently free.
type NodeResources struct {
	CPUCount         int   `json:"cpu_count"`
	MemoryTotalBytes int64 `json:"memory_total_bytes"`
	MemoryAvailBytes int64 `json:"memory_available_bytes"`
}

// Node is a registered compute worker realized as a container with
// pinned CPU/memory limits.
type Node struct {
	ID            string         `json:"id"`
	Hostname      string         `json:"hostname"`
	Address       string         `json:"address"`
	Status        NodeStatus     `json:"status"`
	Resources     NodeResources  `json:"resources"`
	LastHeartbeat *time.Time     `json:"last_heartbeat,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// UnmarshalJSON decodes a Node and rejects an unrecognized status,
// turning invariant 3/5-adjacent decode errors into failures at the
// store boundary instead of silent corruption.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	aux := (*alias)(n)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if n.Status != "" && !n.Status.Valid() {
		return fmt.Errorf("types: invalid node status %q", n.Status)
	}
	return nil
}

// AllocatedResources is the capacity a node was created with — the
// authoritative ceiling that observed reports can never raise.
type AllocatedResources struct {
	CPUCount         int   `json:"cpu_count"`
	MemoryTotalBytes int64 `json:"memory_total_bytes"`
}

// PodResources is a resource reservation request: at least one CPU
// core, and a non-negative memory request in megabytes.
type PodResources struct {
	CPUCores  float64 `json:"cpu_cores"`
	MemoryMB  int64   `json:"memory_mb"`
}

// Validate enforces the cpu_cores >= 1 / memory_mb >= 0 invariant.
func (r PodResources) Validate() error {
	if r.CPUCores < 1 {
		return fmt.Errorf("types: cpu_cores must be >= 1, got %v", r.CPUCores)
	}
	if r.MemoryMB < 0 {
		return fmt.Errorf("types: memory_mb must be >= 0, got %v", r.MemoryMB)
	}
	return nil
}

// MemoryBytes converts the request to bytes (1 MiB = 2^20 bytes),
// per the accounting arithmetic in the scheduler.
func (r PodResources) MemoryBytes() int64 {
	return r.MemoryMB * (1 << 20)
}

// Pod is a named resource reservation, optionally bound to a node.
type Pod struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	NodeID    string       `json:"node_id,omitempty"`
	Status    PodStatus    `json:"status"`
	Resources PodResources `json:"resources"`
	CreatedAt time.Time    `json:"created_at"`
}

// UnmarshalJSON decodes a Pod and rejects an unrecognized status.
func (p *Pod) UnmarshalJSON(data []byte) error {
	type alias Pod
	aux := (*alias)(p)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("types: invalid pod status %q", p.Status)
	}
	return nil
}

// DefaultCPULimitPercent and DefaultMemoryLimitPercent are the
// host-utilization limits a HostResource is created with.
const (
	DefaultCPULimitPercent    = 50.0
	DefaultMemoryLimitPercent = 90.0
	MaxLimitPercent           = 90.0
)

// HostResource is the process host's own capacity and the
// utilization limits the health monitor compares node usage against.
type HostResource struct {
	CPUCount          int       `json:"cpu_count"`
	MemoryTotalBytes  int64     `json:"memory_total_bytes"`
	MemoryAvailBytes  int64     `json:"memory_available_bytes"`
	CPULimitPercent   float64   `json:"cpu_limit_percent"`
	MemoryLimitPercent float64  `json:"memory_limit_percent"`
}

// ResourceLimits is the mutable subset of HostResource an operator
// may update via PUT /host/resources/limits.
type ResourceLimits struct {
	CPULimitPercent    float64 `json:"cpu_limit_percent"`
	MemoryLimitPercent float64 `json:"memory_limit_percent"`
}

// Validate enforces invariant 5: neither limit may exceed 90%.
func (l ResourceLimits) Validate() error {
	if l.CPULimitPercent > MaxLimitPercent {
		return fmt.Errorf("types: cpu_limit_percent must be <= %v, got %v", MaxLimitPercent, l.CPULimitPercent)
	}
	if l.MemoryLimitPercent > MaxLimitPercent {
		return fmt.Errorf("types: memory_limit_percent must be <= %v, got %v", MaxLimitPercent, l.MemoryLimitPercent)
	}
	return nil
}

// DefaultHostResource returns a HostResource with zeroed capacity and
// the default limits, to be merged with a host sample on first read.
func DefaultHostResource() HostResource {
	return HostResource{
		CPULimitPercent:    DefaultCPULimitPercent,
		MemoryLimitPercent: DefaultMemoryLimitPercent,
	}
}
