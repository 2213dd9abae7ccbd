// Package runtime defines the container runtime driver interface a
// node is realized through, plus a Docker-backed implementation.
package runtime

import "context"

// Driver creates and controls the containers that simulate nodes.
type Driver interface {
	// CreateContainer instantiates a container pinned to cpuCount
	// CPUs and memoryMB megabytes (0/absent means unconstrained),
	// returning its runtime id, hostname, and network address.
	CreateContainer(ctx context.Context, cpuCount int, memoryMB int64) (id, hostname, address string, err error)
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
