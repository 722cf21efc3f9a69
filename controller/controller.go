package controller

import (
	"context"
	"sync"
	"time"

	"github.com/p2pclaw/hive/archive"
	"github.com/p2pclaw/hive/dedup"
	"github.com/p2pclaw/hive/fsm"
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/reputation"
	"github.com/p2pclaw/hive/store"
	"github.com/p2pclaw/hive/warden"
)

// hostMetricsInterval is how often host telemetry is sampled
const hostMetricsInterval = 15 * time.Second

// Controller acts as the 'manager' of the modules of the application
type Controller struct {
	Graph      *store.Graph
	Dedup      *dedup.Engine
	Warden     *warden.Warden
	Reputation *reputation.Engine
	FSM        *fsm.StateMachine
	Archiver   archive.ArchiverI
	Metrics    *lib.Metrics
	Config     lib.Config
	log        lib.LoggerI
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	sync.Mutex
}

// New() creates a new instance of a Controller, this is the entry point when initializing a hive node
// if no replicas are given, the local badger replica is opened from the store config
func New(c lib.Config, metrics *lib.Metrics, l lib.LoggerI, replicas ...store.ReplicaI) (*Controller, lib.ErrorI) {
	if len(replicas) == 0 {
		local, err := store.NewBadgerReplica(c.NodeID, c.StoreConfig, l.WithModule("store"))
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, local)
	}
	graph, err := store.NewGraph(c, metrics, l.WithModule("store"), replicas...)
	if err != nil {
		return nil, err
	}
	d, err := dedup.New(c.DedupConfig, graph, metrics, l.WithModule("dedup"))
	if err != nil {
		return nil, err
	}
	w, err := warden.New(c.WardenConfig, graph, metrics, l.WithModule("warden"))
	if err != nil {
		return nil, err
	}
	rep := reputation.New(c.ReputationConfig, graph, w, metrics, l.WithModule("reputation"))
	arch := archive.New(c.ArchiveConfig, metrics, l.WithModule("archive"))
	return &Controller{
		Graph:      graph,
		Dedup:      d,
		Warden:     w,
		Reputation: rep,
		FSM:        fsm.New(c.ConsensusConfig, graph, d, rep, w, arch, metrics, l.WithModule("consensus")),
		Archiver:   arch,
		Metrics:    metrics,
		Config:     c,
		log:        l,
	}, nil
}

// Start() begins the Controller service
func (c *Controller) Start() {
	c.Lock()
	defer c.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	// start the telemetry server
	c.Metrics.Start()
	// seed the dedup registry from the papers already in the graph
	c.log.Infof("Dedup registry seeded with %d papers", c.Dedup.Rebuild(ctx))
	// start the maintenance loops
	c.every(ctx, time.Duration(c.Config.RebuildIntervalS)*time.Second, func(ctx context.Context) {
		c.log.Debugf("Dedup registry rebuilt with %d papers", c.Dedup.Rebuild(ctx))
	})
	c.every(ctx, time.Duration(c.Config.RogueScanIntervalS)*time.Second, func(ctx context.Context) {
		if rogue := c.Reputation.DetectRogueAgents(ctx); len(rogue) != 0 {
			c.log.Warnf("Fairness scan penalized %d agents: %v", len(rogue), rogue)
		}
	})
	c.every(ctx, hostMetricsInterval, func(context.Context) { c.Metrics.UpdateHostMetrics() })
	c.log.Infof("Node %s started", c.Config.NodeID)
}

// Stop() terminates the Controller service
func (c *Controller) Stop() {
	c.Lock()
	defer c.Unlock()
	// stop the maintenance loops
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.Dedup.Close()
	if err := c.Graph.Close(); err != nil {
		c.log.Error(err.Error())
	}
	c.Metrics.Stop()
}

// every() runs the task on an interval until the context is canceled; a non-positive interval disables the task
func (c *Controller) every(ctx context.Context, interval time.Duration, task func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer lib.CatchPanic(c.log)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				task(ctx)
			}
		}
	}()
}
