// Package storage implements the state store adapter: a byte-oriented
// key/value contract with named sets for enumeration, backed by
// BoltDB (pkg/storage.BoltStore), Redis (pkg/storage.RedisStore), or
// an in-memory fake for tests (pkg/storage.MemoryStore). Typed
// encodes records as JSON on top of any of them.
package storage

import "context"

// Store is the control plane's persistence contract: a byte-oriented
// mapping from keys to opaque records, plus named sets used for
// enumeration (the "nodes" and "pods" id sets, and each node's
// "node:{id}:pods" membership set).
//
// Reads return found=false when the key is unknown; writes are
// last-writer-wins. No transactional guarantees are required across
// keys — components are built to tolerate torn reads, per the
// concurrency model.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	AddToSet(ctx context.Context, set, member string) error
	RemoveFromSet(ctx context.Context, set, member string) error
	Members(ctx context.Context, set string) ([]string, error)

	// DeleteWithSet deletes key and removes member from set in one
	// call, per the "atomic delete of a record plus its set
	// membership" operation in the contract. Backends that cannot
	// offer real atomicity still perform both writes; callers must
	// not rely on torn-write recovery beyond what §5 already accepts.
	DeleteWithSet(ctx context.Context, key, set, member string) error

	Close() error
}

// Key names and set names, per the §4.1 key/set table.
const (
	SetNodes = "nodes"
	SetPods  = "pods"

	KeyHostResources  = "host:resources"
	KeyHostLastUpdate = "host:last_update"
)

// NodeKey returns the record key for a node.
func NodeKey(id string) string { return "node:" + id }

// AllocatedKey returns the record key for a node's AllocatedResources.
func AllocatedKey(id string) string { return "node:" + id + ":allocated" }

// NodePodsSet returns the name of the set of pod ids placed on node id.
func NodePodsSet(id string) string { return "node:" + id + ":pods" }

// PodKey returns the record key for a pod.
func PodKey(id string) string { return "pod:" + id }
