package storage

import (
	"context"
	"testing"
	"time"

	"github.com/nexuscore/nexuscore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(id string) *types.Node {
	return &types.Node{
		ID:       id,
		Hostname: "host-" + id,
		Status:   types.NodeStatusOnline,
		Resources: types.NodeResources{
			CPUCount:         4,
			MemoryTotalBytes: 8 << 30,
			MemoryAvailBytes: 8 << 30,
		},
		CreatedAt: time.Now(),
	}
}

// storeFactories lets the shared conformance tests below run against
// every backend that only needs local setup (BoltStore via t.TempDir,
// MemoryStore in-process). RedisStore needs a live server and is left
// to manual/integration testing.
func storeFactories(t *testing.T) map[string]Store {
	bolt, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bolt,
	}
}

func TestStore_GetPutDelete(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, found, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Put(ctx, "key", []byte("value")))
			data, found, err := s.Get(ctx, "key")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, []byte("value"), data)

			require.NoError(t, s.Delete(ctx, "key"))
			_, found, err = s.Get(ctx, "key")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_SetMembership(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.AddToSet(ctx, "widgets", "a"))
			require.NoError(t, s.AddToSet(ctx, "widgets", "b"))
			require.NoError(t, s.AddToSet(ctx, "widgets", "a")) // idempotent

			members, err := s.Members(ctx, "widgets")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, members)

			require.NoError(t, s.RemoveFromSet(ctx, "widgets", "a"))
			members, err = s.Members(ctx, "widgets")
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, members)
		})
	}
}

func TestStore_DeleteWithSet(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Put(ctx, "node:x", []byte("{}")))
			require.NoError(t, s.AddToSet(ctx, SetNodes, "x"))

			require.NoError(t, s.DeleteWithSet(ctx, "node:x", SetNodes, "x"))

			_, found, err := s.Get(ctx, "node:x")
			require.NoError(t, err)
			assert.False(t, found)

			members, err := s.Members(ctx, SetNodes)
			require.NoError(t, err)
			assert.NotContains(t, members, "x")
		})
	}
}

func TestTyped_NodeRoundTrip(t *testing.T) {
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			typed := NewTyped(s)

			_, found, err := typed.GetNode(ctx, "n1")
			require.NoError(t, err)
			assert.False(t, found)

			node := newTestNode("n1")
			require.NoError(t, typed.PutNode(ctx, node))
			require.NoError(t, typed.AddToSet(ctx, SetNodes, node.ID))

			got, found, err := typed.GetNode(ctx, "n1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, node.Hostname, got.Hostname)

			all, err := typed.ListNodes(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "n1", all[0].ID)
		})
	}
}
