package store

import (
	"context"
	"testing"

	"github.com/p2pclaw/hive/lib"
	"github.com/stretchr/testify/require"
)

func TestBadgerReplicaRoundTrip(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()
	// pre-define leaves of several types
	fields := Fields{
		"title":    {Value: "A Study", TS: 5, Origin: "a"},
		"score":    {Value: 0.75, TS: 5, Origin: "a"},
		"verified": {Value: true, TS: 5, Origin: "a"},
	}
	// execute the function call
	require.NoError(t, b.Put(ctx, "papers/p1", fields))
	got, err := b.Get(ctx, "papers/p1")
	require.NoError(t, err)
	// compare got vs expected
	require.Equal(t, fields, got)
	// a missing path is empty, not an error
	got, err = b.Get(ctx, "papers/missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBadgerReplicaKeepsNewerLeaf(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()
	// write the newer leaf first
	require.NoError(t, b.Put(ctx, "papers/p1", Fields{"status": {Value: "VERIFIED", TS: 10, Origin: "a"}}))
	// a stale write arrives late
	require.NoError(t, b.Put(ctx, "papers/p1", Fields{"status": {Value: "MEMPOOL", TS: 5, Origin: "b"}}))
	got, err := b.Get(ctx, "papers/p1")
	require.NoError(t, err)
	// compare got vs expected
	require.Equal(t, "VERIFIED", got["status"].Value)
}

func TestBadgerReplicaChildren(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()
	leaf := Fields{"x": {Value: "y", TS: 1, Origin: "a"}}
	require.NoError(t, b.Put(ctx, "mempool/p1", leaf))
	require.NoError(t, b.Put(ctx, "mempool/p2", leaf))
	require.NoError(t, b.Put(ctx, "mempool/p2/deep", leaf))
	require.NoError(t, b.Put(ctx, "mempoolx/p3", leaf))
	// execute the function call
	got, err := b.Children(ctx, "mempool")
	require.NoError(t, err)
	// compare got vs expected
	require.Len(t, got, 2)
	require.Contains(t, got, "p1")
	require.Contains(t, got, "p2")
}

func TestBadgerGraphNormalizesNumbers(t *testing.T) {
	b := newTestBadger(t)
	g := newTestGraph(t, "node-a", b)
	ctx := context.Background()
	// integers are written
	require.NoError(t, g.Put(ctx, "papers/p1", lib.Record{"version": 2, "createdAt": int64(1700000000000)}))
	got, found := g.Read(ctx, "papers/p1")
	require.True(t, found)
	// and read back as float64 like every other replica
	require.Equal(t, float64(2), got["version"])
	require.Equal(t, int64(1700000000000), got.Int64("createdAt"))
}

// newTestBadger() opens an in-memory badger replica closed at test cleanup
func newTestBadger(t *testing.T) *BadgerReplica {
	config := lib.DefaultStoreConfig()
	config.InMemory = true
	b, err := NewBadgerReplica("local", config, lib.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}
