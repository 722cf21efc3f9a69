package store

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/p2pclaw/hive/lib"
)

/*
	A replica holds a copy of the graph. Every leaf carries the write timestamp and the origin (node id) of its
	writer; replicas merge incoming leaves last-write-wins, breaking timestamp ties by the larger origin, so any
	two replicas that received the same set of writes converge to the same state regardless of delivery order.
*/

// Field is a single leaf of a record plus its merge metadata
type Field struct {
	Value  any    `json:"v"`
	TS     int64  `json:"ts"` // unix nanoseconds of the write
	Origin string `json:"o"`  // the id of the writing node
}

// Fields is the leaf set of one path
type Fields map[string]Field

// ReplicaI is a single copy of the replicated graph
type ReplicaI interface {
	// ID() returns a stable identifier of the replica
	ID() string
	// Put() merges the leaves into the path last-write-wins
	Put(ctx context.Context, path string, fields Fields) lib.ErrorI
	// Get() returns the leaves at the path (nil if none)
	Get(ctx context.Context, path string) (Fields, lib.ErrorI)
	// Children() returns the leaves of every direct child of the path keyed by child id
	Children(ctx context.Context, path string) (map[string]Fields, lib.ErrorI)
	// Close() releases the replica
	Close() lib.ErrorI
}

// Newer() returns true if f wins over the other leaf
func (f Field) Newer(other Field) bool {
	if f.TS != other.TS {
		return f.TS > other.TS
	}
	return f.Origin > other.Origin
}

// Merge() merges the incoming leaves into fs and returns fs
func (fs Fields) Merge(incoming Fields) Fields {
	for k, in := range incoming {
		if cur, ok := fs[k]; ok && !in.Newer(cur) {
			continue
		}
		fs[k] = in
	}
	return fs
}

// Record() strips the merge metadata
func (fs Fields) Record() lib.Record {
	r := make(lib.Record, len(fs))
	for k, f := range fs {
		r[k] = f.Value
	}
	return r
}

// Clock issues strictly increasing timestamps for one writer
type Clock struct{ last atomic.Int64 }

// Next() returns max(now, last+1)
func (c *Clock) Next() int64 {
	for {
		now, last := time.Now().UnixNano(), c.last.Load()
		if now <= last {
			now = last + 1
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// validPath() checks the path has no empty segments and no key separator
func validPath(path string) bool {
	if path == "" || strings.Contains(path, keySeparator) {
		return false
	}
	for _, segment := range strings.Split(path, lib.PathSeparator) {
		if segment == "" {
			return false
		}
	}
	return true
}

// validField() checks a leaf name
func validField(field string) bool {
	return field != "" && !strings.Contains(field, keySeparator) && !strings.Contains(field, lib.PathSeparator)
}

// childOf() splits a path under the parent into (child id, true) when it is a direct child
func childOf(parent, path string) (string, bool) {
	prefix := parent + lib.PathSeparator
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	child := strings.TrimPrefix(path, prefix)
	if child == "" || strings.Contains(child, lib.PathSeparator) {
		return "", false
	}
	return child, true
}
