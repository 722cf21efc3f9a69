package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/p2pclaw/hive/lib"
)

// ReplicaI interface enforcement
var _ ReplicaI = &MemReplica{}

var errUnreachable = errors.New("replica unreachable")

// MemReplica is an in-process replica with configurable latency and partitioning, used to model remote peers
type MemReplica struct {
	id          string
	mu          sync.RWMutex
	data        map[string]Fields
	latency     atomic.Int64 // nanoseconds added before every operation
	partitioned atomic.Bool  // when set every operation fails as if the peer never answered
}

// NewMemReplica() constructs an empty in-memory replica
func NewMemReplica(id string) *MemReplica {
	return &MemReplica{id: id, data: make(map[string]Fields)}
}

// ID() returns the replica id
func (m *MemReplica) ID() string { return m.id }

// SetLatency() delays every subsequent operation by d
func (m *MemReplica) SetLatency(d time.Duration) { m.latency.Store(int64(d)) }

// SetPartitioned() makes the replica unreachable (or reachable again)
func (m *MemReplica) SetPartitioned(p bool) { m.partitioned.Store(p) }

// Put() merges the leaves into the path
func (m *MemReplica) Put(ctx context.Context, path string, fields Fields) lib.ErrorI {
	if err := m.wait(ctx); err != nil {
		return ErrStoreSet(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[path]
	if !ok {
		cur = make(Fields, len(fields))
		m.data[path] = cur
	}
	cur.Merge(fields)
	return nil
}

// Get() returns a copy of the leaves at the path
func (m *MemReplica) Get(ctx context.Context, path string) (Fields, lib.ErrorI) {
	if err := m.wait(ctx); err != nil {
		return nil, ErrStoreGet(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur, ok := m.data[path]
	if !ok {
		return nil, nil
	}
	return make(Fields, len(cur)).Merge(cur), nil
}

// Children() returns copies of the direct children of the path
func (m *MemReplica) Children(ctx context.Context, path string) (map[string]Fields, lib.ErrorI) {
	if err := m.wait(ctx); err != nil {
		return nil, ErrStoreIterate(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Fields)
	for p, fields := range m.data {
		if child, ok := childOf(path, p); ok {
			out[child] = make(Fields, len(fields)).Merge(fields)
		}
	}
	return out, nil
}

// SyncFrom() pulls every leaf of the other replica into this one, modeling a round of anti-entropy gossip
func (m *MemReplica) SyncFrom(other *MemReplica) {
	other.mu.RLock()
	snapshot := make(map[string]Fields, len(other.data))
	for p, fields := range other.data {
		snapshot[p] = make(Fields, len(fields)).Merge(fields)
	}
	other.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for p, fields := range snapshot {
		cur, ok := m.data[p]
		if !ok {
			cur = make(Fields, len(fields))
			m.data[p] = cur
		}
		cur.Merge(fields)
	}
}

// Close() is a no-op
func (m *MemReplica) Close() lib.ErrorI { return nil }

// wait() applies the configured latency and partition
func (m *MemReplica) wait(ctx context.Context) error {
	if m.partitioned.Load() {
		return errUnreachable
	}
	if d := time.Duration(m.latency.Load()); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
