package lib

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/mem"
)

/* This file implements dev-ops telemetry for the node in the form of prometheus metrics */

const metricsPattern = "/metrics"

// Metrics represents a server that exposes Prometheus metrics
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // the per-node registry
	log      LoggerI              // the logger

	NodeMetrics       // general telemetry about the node
	StoreMetrics      // replicated store telemetry
	ConsensusMetrics  // paper lifecycle telemetry
	DedupMetrics      // duplicate detection telemetry
	WardenMetrics     // moderation telemetry
	ReputationMetrics // progress telemetry
}

// NodeMetrics represents general telemetry for the node's health
type NodeMetrics struct {
	NodeStatus     prometheus.Gauge // is the node alive?
	HostMemoryUsed prometheus.Gauge // percentage of host memory in use
}

// StoreMetrics represents the telemetry of the replicated store
type StoreMetrics struct {
	ReadSettleTime  prometheus.Histogram // how long does a settle read wait?
	ReplicaAnswers  prometheus.Histogram // how many replicas answered a settle read?
	WriteFailures   prometheus.Counter   // how many writes got no acknowledgement?
	ArchiveFailures prometheus.Counter   // how many archival calls exhausted their retries?
}

// ConsensusMetrics represents the telemetry of the validation state machine
type ConsensusMetrics struct {
	PapersSubmitted *prometheus.CounterVec // submissions by outcome
	Validations     *prometheus.CounterVec // validations by outcome
	PapersPromoted  prometheus.Counter     // how many papers reached VERIFIED through this node?
	PapersRejected  prometheus.Counter     // how many papers reached REJECTED through this node?
}

// DedupMetrics represents the telemetry of the dedup engine
type DedupMetrics struct {
	Verdicts  *prometheus.CounterVec // verdicts by decision and source
	CacheHits prometheus.Counter     // exact fast path hits
}

// WardenMetrics represents the telemetry of the moderation subsystem
type WardenMetrics struct {
	Strikes prometheus.Counter // strikes recorded by this node
	Bans    prometheus.Counter // bans written by this node
}

// ReputationMetrics represents the telemetry of the rank engine
type ReputationMetrics struct {
	ProgressUpdates prometheus.Counter // τ/κ updates applied
	RogueAgents     prometheus.Counter // agents routed to the warden by the fairness scan
}

// NewMetricsServer() creates a new telemetry server
func NewMetricsServer(config MetricsConfig, log LoggerI) *Metrics {
	// each node owns its registry so several nodes may live in one process
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if log == nil {
		log = NewDefaultLogger()
	}
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		config:   config,
		registry: registry,
		log:      log,
		NodeMetrics: NodeMetrics{
			NodeStatus: factory.NewGauge(prometheus.GaugeOpts{
				Name: "hive_node_status",
				Help: "The node is alive and serving",
			}),
			HostMemoryUsed: factory.NewGauge(prometheus.GaugeOpts{
				Name: "hive_host_memory_used_percent",
				Help: "Percentage of the host memory in use",
			}),
		},
		StoreMetrics: StoreMetrics{
			ReadSettleTime: factory.NewHistogram(prometheus.HistogramOpts{
				Name: "hive_store_read_settle_seconds",
				Help: "Time a settle read waited for replicas in seconds",
			}),
			ReplicaAnswers: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "hive_store_read_replica_answers",
				Help:    "Replicas that answered a settle read",
				Buckets: prometheus.LinearBuckets(0, 1, 8),
			}),
			WriteFailures: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_store_write_failures",
				Help: "Writes that no replica acknowledged",
			}),
			ArchiveFailures: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_archive_failures",
				Help: "Archival calls that exhausted their retries",
			}),
		},
		ConsensusMetrics: ConsensusMetrics{
			PapersSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "hive_papers_submitted",
				Help: "Submissions by outcome",
			}, []string{"outcome"}),
			Validations: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "hive_validations",
				Help: "Validations by outcome",
			}, []string{"outcome"}),
			PapersPromoted: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_papers_promoted",
				Help: "Papers promoted to VERIFIED by this node",
			}),
			PapersRejected: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_papers_rejected",
				Help: "Papers rejected by flags on this node",
			}),
		},
		DedupMetrics: DedupMetrics{
			Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "hive_dedup_verdicts",
				Help: "Dedup verdicts by decision and source",
			}, []string{"decision", "source"}),
			CacheHits: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_dedup_cache_hits",
				Help: "Exact fast path hits",
			}),
		},
		WardenMetrics: WardenMetrics{
			Strikes: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_warden_strikes",
				Help: "Strikes recorded",
			}),
			Bans: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_warden_bans",
				Help: "Bans written",
			}),
		},
		ReputationMetrics: ReputationMetrics{
			ProgressUpdates: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_reputation_progress_updates",
				Help: "Progress (tau / kappa) updates applied",
			}),
			RogueAgents: factory.NewCounter(prometheus.CounterOpts{
				Name: "hive_reputation_rogue_agents",
				Help: "Agents flagged by the fairness scan",
			}),
		},
	}
}

// Start() starts the telemetry server
func (m *Metrics) Start() {
	// exit if empty
	if m == nil {
		return
	}
	// set node is alive
	m.NodeStatus.Set(1)
	// if the metrics server is enabled
	if m.config.Enabled {
		go func() {
			m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
			// run the server
			if err := m.server.ListenAndServe(); err != nil {
				if err != http.ErrServerClosed {
					m.log.Errorf("Metrics server failed with err: %s", err.Error())
				}
			}
		}()
	}
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	// exit if empty
	if m == nil {
		return
	}
	// if the metrics server isn't enabled
	if m.config.Enabled {
		// shutdown the server
		if err := m.server.Shutdown(context.Background()); err != nil {
			m.log.Error(err.Error())
		}
	}
}

// Registry() exposes the per-node registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UpdateHostMetrics() samples host memory usage
func (m *Metrics) UpdateHostMetrics() {
	// exit if empty
	if m == nil {
		return
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		m.log.Debugf("Unable to sample host memory: %s", err.Error())
		return
	}
	m.HostMemoryUsed.Set(vm.UsedPercent)
}

// ObserveRead() records a settle read
func (m *Metrics) ObserveRead(duration time.Duration, answers int) {
	// exit if empty
	if m == nil {
		return
	}
	m.ReadSettleTime.Observe(duration.Seconds())
	m.ReplicaAnswers.Observe(float64(answers))
}

// IncWriteFailure() counts an unacknowledged write
func (m *Metrics) IncWriteFailure() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

// IncArchiveFailure() counts an exhausted archival call
func (m *Metrics) IncArchiveFailure() {
	if m == nil {
		return
	}
	m.ArchiveFailures.Inc()
}

// UpdateSubmission() counts a submission outcome ('accepted', 'warned', or an error reason)
func (m *Metrics) UpdateSubmission(outcome string) {
	if m == nil {
		return
	}
	m.PapersSubmitted.WithLabelValues(outcome).Inc()
}

// UpdateValidation() counts a validation outcome ('approved', 'flagged', or an error reason)
func (m *Metrics) UpdateValidation(outcome string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(outcome).Inc()
}

// IncPromoted() counts a promotion performed by this node
func (m *Metrics) IncPromoted() {
	if m == nil {
		return
	}
	m.PapersPromoted.Inc()
}

// IncRejected() counts a flag rejection performed by this node
func (m *Metrics) IncRejected() {
	if m == nil {
		return
	}
	m.PapersRejected.Inc()
}

// UpdateDedup() counts a dedup verdict
func (m *Metrics) UpdateDedup(decision, source string, cacheHit bool) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(decision, source).Inc()
	if cacheHit {
		m.CacheHits.Inc()
	}
}

// UpdateWarden() counts a strike and optionally a ban
func (m *Metrics) UpdateWarden(banned bool) {
	if m == nil {
		return
	}
	m.Strikes.Inc()
	if banned {
		m.Bans.Inc()
	}
}

// IncProgress() counts a τ/κ update
func (m *Metrics) IncProgress() {
	if m == nil {
		return
	}
	m.ProgressUpdates.Inc()
}

// IncRogue() counts an agent flagged by the fairness scan
func (m *Metrics) IncRogue() {
	if m == nil {
		return
	}
	m.RogueAgents.Inc()
}
