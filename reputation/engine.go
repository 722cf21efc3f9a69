package reputation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/lib/crypto"
	"github.com/p2pclaw/hive/warden"
)

// WardenI is the moderation capability the fairness scan reports to
type WardenI interface {
	Penalize(ctx context.Context, agentID, reason string) (warden.Verdict, lib.ErrorI)
}

// Heartbeat is a presence signal, optionally carrying a progress report and a compute split
type Heartbeat struct {
	AgentID     string  `json:"agentId"`
	Name        string  `json:"name,omitempty"`
	IdentityKey string  `json:"identityKey,omitempty"`
	Consumed    float64 `json:"consumed,omitempty"`    // compute consumed since the last heartbeat
	Contributed float64 `json:"contributed,omitempty"` // compute contributed since the last heartbeat
	Report
}

// Engine keeps the rank inputs of every agent in the graph
type Engine struct {
	graph   lib.GraphI
	warden  WardenI
	config  lib.ReputationConfig
	metrics *lib.Metrics
	log     lib.LoggerI
	now     func() time.Time
}

// New() creates a reputation engine; warden may be nil when no fairness enforcement is wanted
func New(config lib.ReputationConfig, graph lib.GraphI, w WardenI, metrics *lib.Metrics, log lib.LoggerI) *Engine {
	return &Engine{graph: graph, warden: w, config: config, metrics: metrics, log: log, now: time.Now}
}

// Agent() returns the agent in this node's view; an agent that has not materialized is an empty newcomer
func (e *Engine) Agent(ctx context.Context, agentID string) (a *lib.Agent, found bool) {
	rec, found := e.graph.Read(ctx, lib.AgentPath(agentID))
	if !found {
		return lib.NewAgent(agentID), false
	}
	return lib.AgentFromRecord(agentID, rec), true
}

// Profile() returns an agent record or NOT_FOUND
func (e *Engine) Profile(ctx context.Context, agentID string) (*lib.Agent, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return nil, lib.ErrInvalidID(agentID)
	}
	a, found := e.Agent(ctx, agentID)
	if !found {
		return nil, ErrAgentNotFound(agentID)
	}
	// presence decays without heartbeats
	if a.Online && e.config.OnlineWindowS > 0 {
		a.Online = e.now().UnixMilli()-a.LastSeen <= int64(e.config.OnlineWindowS)*1000
	}
	return a, nil
}

// GetRank() computes the current rank of an agent; unknown agents rank as newcomers
func (e *Engine) GetRank(ctx context.Context, agentID string) (Rank, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return Rank{}, lib.ErrInvalidID(agentID)
	}
	a, _ := e.Agent(ctx, agentID)
	return ComputeRank(e.config, a), nil
}

// VotingWeight() returns the weight of the agent's vote; 0 means the agent may not validate
func (e *Engine) VotingWeight(ctx context.Context, agentID string) int {
	r, err := e.GetRank(ctx, agentID)
	if err != nil {
		return 0
	}
	return r.VotingWeight
}

// Credit() records the author's contribution for a verified paper; repeating it for the same paper is a no-op
func (e *Engine) Credit(ctx context.Context, agentID, paperID string, score float64) lib.ErrorI {
	return e.graph.Put(ctx, lib.AgentPath(agentID), lib.Record{lib.SetKey(lib.SetCredited, paperID): score})
}

// RecordValidation() counts a validation performed by the agent; one leaf per paper
func (e *Engine) RecordValidation(ctx context.Context, agentID, paperID string) lib.ErrorI {
	return e.graph.Put(ctx, lib.AgentPath(agentID), lib.Record{
		lib.SetKey(lib.SetValidated, paperID): lib.NowMS(e.now()),
	})
}

// Heartbeat() records presence, the compute split and, if the heartbeat carries one, a progress report
func (e *Engine) Heartbeat(ctx context.Context, hb Heartbeat) (*lib.Agent, lib.ErrorI) {
	if !lib.ValidID(hb.AgentID) {
		return nil, lib.ErrInvalidID(hb.AgentID)
	}
	if hb.Consumed < 0 || hb.Contributed < 0 {
		return nil, ErrInvalidHeartbeat("compute amounts must be non-negative")
	}
	if hb.IdentityKey != "" && !crypto.ValidIdentityKey(hb.IdentityKey) {
		return nil, ErrInvalidHeartbeat("identity key is not a valid ed25519 public key")
	}
	if err := hb.Report.Check(); err != nil {
		return nil, err
	}
	a, _ := e.Agent(ctx, hb.AgentID)
	now := e.now()
	fields := lib.Record{lib.FieldLastSeen: lib.NowMS(now), lib.FieldOnline: !a.Banned}
	if hb.Name != "" {
		fields[lib.FieldName] = hb.Name
	}
	if hb.IdentityKey != "" {
		fields[lib.FieldIdentityKey] = hb.IdentityKey
	}
	if hb.Consumed > 0 {
		fields[lib.FieldComputeSplit] = hb.Contributed / hb.Consumed
	}
	if !hb.Report.Empty() {
		for k, v := range e.progressFields(a, hb.Report, now) {
			fields[k] = v
		}
	}
	if err := e.graph.Put(ctx, lib.AgentPath(hb.AgentID), fields); err != nil {
		return nil, err
	}
	a, _ = e.Agent(ctx, hb.AgentID)
	return a, nil
}

// Progress() applies a τ/κ update for the interval ending now
func (e *Engine) Progress(ctx context.Context, agentID string, r Report) (Progress, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return Progress{}, lib.ErrInvalidID(agentID)
	}
	if err := r.Check(); err != nil {
		return Progress{}, err
	}
	a, _ := e.Agent(ctx, agentID)
	fields := e.progressFields(a, r, e.now())
	if err := e.graph.Put(ctx, lib.AgentPath(agentID), fields); err != nil {
		return Progress{}, err
	}
	return Progress{
		Tau:        fields.Float(lib.FieldTau),
		Kappa:      fields.Float(lib.FieldKappa),
		Reputation: fields.Float(lib.FieldReputation),
		At:         fields.Int64(lib.FieldProgressAt),
	}, nil
}

// DetectRogueAgents() strikes established agents that consume more compute than the fairness floor allows
func (e *Engine) DetectRogueAgents(ctx context.Context) (rogue []string) {
	for id, rec := range e.graph.MapChildren(ctx, lib.AgentsPath) {
		a := lib.AgentFromRecord(id, rec)
		if a.Banned || !a.HasComputeSplit || a.Contributions < e.config.RogueMinContributions {
			continue
		}
		if a.ComputeSplit >= e.config.FairnessFloor {
			continue
		}
		rogue = append(rogue, id)
	}
	sort.Strings(rogue)
	for _, id := range rogue {
		e.metrics.IncRogue()
		if e.warden == nil {
			continue
		}
		reason := fmt.Sprintf("compute split below the fairness floor of %.2f", e.config.FairnessFloor)
		if _, err := e.warden.Penalize(ctx, id, reason); err != nil {
			e.log.Errorf("Penalize rogue agent %s failed with err: %s", id, err.Error())
		}
	}
	if len(rogue) != 0 {
		e.log.Warnf("Fairness scan flagged %d agents", len(rogue))
	}
	return
}

// progressFields() advances the agent's τ/κ state and returns the leaves to write
func (e *Engine) progressFields(a *lib.Agent, r Report, now time.Time) lib.Record {
	prev := Progress{Tau: a.Tau, Kappa: a.Kappa, Reputation: a.Reputation, At: a.ProgressAt}
	next := Advance(e.config, prev, r, lib.NowMS(now))
	e.metrics.IncProgress()
	return lib.Record{
		lib.FieldTau:        next.Tau,
		lib.FieldKappa:      next.Kappa,
		lib.FieldReputation: next.Reputation,
		lib.FieldProgressAt: next.At,
	}
}
