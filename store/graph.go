package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/p2pclaw/hive/lib"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"
)

// GraphI interface enforcement
var _ lib.GraphI = &Graph{}

/*
Graph is the replicated store client used by every engine component.

  - Put() stamps each leaf with this node's clock and origin and fans the write out to every replica. It succeeds
    when at least one replica acknowledged before the write timeout; the others catch up through gossip.
  - Read() and MapChildren() are settle reads: the query goes to every replica, whatever answered within the
    settle budget is merged last-write-wins, and a replica that did not answer is simply not part of the view.
    A read never fails; an empty view means 'not found'.
*/
type Graph struct {
	origin       string        // this node's id, breaks timestamp ties
	replicas     []ReplicaI    // the local replica first, then remote peers
	clock        *Clock        // strictly increasing write timestamps
	settle       time.Duration // settle read budget
	writeTimeout time.Duration // write acknowledgement budget
	metrics      *lib.Metrics  // telemetry
	log          lib.LoggerI   // logger
}

// NewGraph() constructs a graph client over the replicas
func NewGraph(config lib.Config, metrics *lib.Metrics, log lib.LoggerI, replicas ...ReplicaI) (*Graph, lib.ErrorI) {
	if len(replicas) == 0 {
		return nil, ErrNoReplicas()
	}
	return &Graph{
		origin:       config.NodeID,
		replicas:     replicas,
		clock:        new(Clock),
		settle:       config.StoreConfig.Settle(),
		writeTimeout: config.StoreConfig.WriteTimeout(),
		metrics:      metrics,
		log:          log,
	}, nil
}

// Put() merges the partial record into the path on every reachable replica
func (g *Graph) Put(ctx context.Context, path string, fields lib.Record) lib.ErrorI {
	if !validPath(path) {
		return ErrInvalidStorePath(path)
	}
	// stamp every leaf with the same timestamp
	ts, stamped := g.clock.Next(), make(Fields, len(fields))
	for name, v := range fields {
		if !validField(name) {
			return ErrInvalidStorePath(path + lib.PathSeparator + name)
		}
		// normalize to the wire types every replica stores (numbers become float64)
		value, err := structpb.NewValue(v)
		if err != nil {
			return ErrEncodeField(name, err)
		}
		stamped[name] = Field{Value: value.AsInterface(), TS: ts, Origin: g.origin}
	}
	ctx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	var (
		acks    atomic.Int32
		lastErr atomic.Value
		eg      errgroup.Group
	)
	for _, r := range g.replicas {
		eg.Go(func() error {
			if err := r.Put(ctx, path, stamped); err != nil {
				g.log.Debugf("Replica %s rejected write to %s: %s", r.ID(), path, err.Error())
				lastErr.Store(error(err))
				return nil
			}
			acks.Add(1)
			return nil
		})
	}
	_ = eg.Wait()
	if acks.Load() == 0 {
		g.metrics.IncWriteFailure()
		err, _ := lastErr.Load().(error)
		return ErrNoWriteAck(path, err)
	}
	return nil
}

// Read() returns the merged view of the path
func (g *Graph) Read(ctx context.Context, path string) (lib.Record, bool) {
	if !validPath(path) {
		return nil, false
	}
	merged := make(Fields)
	for _, fields := range settleRead(ctx, g, func(ctx context.Context, r ReplicaI) (Fields, lib.ErrorI) {
		return r.Get(ctx, path)
	}) {
		merged.Merge(fields)
	}
	if len(merged) == 0 {
		return nil, false
	}
	return merged.Record(), true
}

// MapChildren() returns the merged view of every visible child of the path
func (g *Graph) MapChildren(ctx context.Context, path string) map[string]lib.Record {
	out := make(map[string]lib.Record)
	if !validPath(path) {
		return out
	}
	merged := make(map[string]Fields)
	for _, children := range settleRead(ctx, g, func(ctx context.Context, r ReplicaI) (map[string]Fields, lib.ErrorI) {
		return r.Children(ctx, path)
	}) {
		for id, fields := range children {
			if merged[id] == nil {
				merged[id] = make(Fields, len(fields))
			}
			merged[id].Merge(fields)
		}
	}
	for id, fields := range merged {
		out[id] = fields.Record()
	}
	return out
}

// Close() closes every replica
func (g *Graph) Close() lib.ErrorI {
	var first lib.ErrorI
	for _, r := range g.replicas {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// settleRead() queries every replica concurrently and returns the answers collected once all replicas answered
// or the settle budget elapsed; late answers are dropped
func settleRead[T any](ctx context.Context, g *Graph, query func(ctx context.Context, r ReplicaI) (T, lib.ErrorI)) []T {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.settle)
	defer cancel()
	// buffered so late replicas never block
	answers, eg := make(chan T, len(g.replicas)), errgroup.Group{}
	for _, r := range g.replicas {
		eg.Go(func() error {
			result, err := query(ctx, r)
			if err != nil {
				g.log.Debugf("Replica %s did not answer: %s", r.ID(), err.Error())
				return nil
			}
			answers <- result
			return nil
		})
	}
	// replicas that ignore the deadline must not hold the read past the budget
	done := make(chan struct{})
	go func() {
		_ = eg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	var out []T
	for {
		select {
		case a := <-answers:
			out = append(out, a)
		default:
			g.metrics.ObserveRead(time.Since(start), len(out))
			return out
		}
	}
}
