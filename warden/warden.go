package warden

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/p2pclaw/hive/lib"
)

/*
	The Warden is the network's moderation subsystem.

	Strikes are grow-only member leaves on the agent record ('strike.<incident>'), pardons are leaves keyed by the
	strike they forgive ('pardon.<incident>'). Two nodes striking the same agent at the same time write two different
	leaves, so every node converges on the same count once the replicas have gossiped; the denormalized 'strikes'
	field is only a convenience for readers.
*/

// Verdict is the result of an inspection
type Verdict struct {
	Allowed bool     `json:"allowed"`
	Banned  bool     `json:"banned,omitempty"`
	Strikes int      `json:"strikes,omitempty"`
	Matched []string `json:"matched,omitempty"`
}

// Warden inspects text and keeps the strike ledger of every agent
type Warden struct {
	graph   lib.GraphI
	config  lib.WardenConfig
	policy  *Policy
	metrics *lib.Metrics
	log     lib.LoggerI
}

// New() creates a warden with a compiled policy
func New(config lib.WardenConfig, graph lib.GraphI, metrics *lib.Metrics, log lib.LoggerI) (*Warden, lib.ErrorI) {
	policy, err := NewPolicy(config)
	if err != nil {
		return nil, err
	}
	if config.StrikeLimit <= 0 {
		config.StrikeLimit = lib.DefaultWardenConfig().StrikeLimit
	}
	return &Warden{graph: graph, config: config, policy: policy, metrics: metrics, log: log}, nil
}

// Inspect() checks the text against the policy and records a strike on a violation
func (w *Warden) Inspect(ctx context.Context, agentID, text string) (Verdict, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return Verdict{}, lib.ErrInvalidID(agentID)
	}
	// whitelisted agents always pass
	if w.policy.Whitelisted(agentID) {
		return Verdict{Allowed: true}, nil
	}
	rec, _ := w.graph.Read(ctx, lib.AgentPath(agentID))
	agent := lib.AgentFromRecord(agentID, rec)
	w.enforce(ctx, agent)
	// a banned agent is silenced without accruing further strikes
	if agent.Banned {
		return Verdict{Allowed: false, Banned: true, Strikes: agent.Strikes}, nil
	}
	matched := w.policy.Match(text)
	if len(matched) == 0 {
		return Verdict{Allowed: true, Strikes: agent.Strikes}, nil
	}
	w.log.Warnf("Agent %s violated the content policy: %v", agentID, matched)
	return w.strike(ctx, agent, matched)
}

// Penalize() records a policy strike that was not triggered by text (e.g. a failed fairness check)
func (w *Warden) Penalize(ctx context.Context, agentID, reason string) (Verdict, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return Verdict{}, lib.ErrInvalidID(agentID)
	}
	if w.policy.Whitelisted(agentID) {
		return Verdict{Allowed: true}, nil
	}
	rec, _ := w.graph.Read(ctx, lib.AgentPath(agentID))
	agent := lib.AgentFromRecord(agentID, rec)
	w.enforce(ctx, agent)
	if agent.Banned {
		return Verdict{Allowed: false, Banned: true, Strikes: agent.Strikes}, nil
	}
	w.log.Warnf("Agent %s penalized: %s", agentID, reason)
	return w.strike(ctx, agent, []string{reason})
}

// Appeal() pardons the most recent strike of a non-banned agent and returns the strikes remaining
func (w *Warden) Appeal(ctx context.Context, agentID, reason string) (remaining int, err lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return 0, lib.ErrInvalidID(agentID)
	}
	rec, _ := w.graph.Read(ctx, lib.AgentPath(agentID))
	agent := lib.AgentFromRecord(agentID, rec)
	w.enforce(ctx, agent)
	// banned agents need an operator
	if agent.Banned {
		return agent.Strikes, ErrBannedRequiresReview(agentID)
	}
	// nothing to forgive
	if agent.Strikes == 0 {
		return 0, nil
	}
	w.log.Infof("Agent %s appealed a strike: %s", agentID, reason)
	return w.pardon(ctx, rec, agent, false)
}

// Review() is the administrative path: pardon one strike and lift the ban once the agent is back under the limit
// (clearBan) or back to zero strikes
func (w *Warden) Review(ctx context.Context, agentID string, clearBan bool) (Verdict, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return Verdict{}, lib.ErrInvalidID(agentID)
	}
	rec, _ := w.graph.Read(ctx, lib.AgentPath(agentID))
	agent := lib.AgentFromRecord(agentID, rec)
	w.enforce(ctx, agent)
	if agent.Strikes == 0 && !agent.Banned {
		return Verdict{Allowed: true}, ErrNoStrikes(agentID)
	}
	remaining, err := w.pardon(ctx, rec, agent, clearBan)
	if err != nil {
		return Verdict{}, err
	}
	banned := agent.Banned && !(remaining == 0 || (clearBan && remaining < w.config.StrikeLimit))
	return Verdict{Allowed: !banned, Banned: banned, Strikes: remaining}, nil
}

// Banned() returns true if the agent is currently banned in this node's view
func (w *Warden) Banned(ctx context.Context, agentID string) bool {
	rec, found := w.graph.Read(ctx, lib.AgentPath(agentID))
	if !found {
		return false
	}
	agent := lib.AgentFromRecord(agentID, rec)
	w.enforce(ctx, agent)
	return agent.Banned
}

// enforce() bans an agent whose merged strike count reached the limit but whose record does not carry the ban yet.
// Strikes recorded concurrently on different nodes can cross the limit without any single node seeing it happen
func (w *Warden) enforce(ctx context.Context, agent *lib.Agent) {
	if agent.Banned || agent.Strikes < w.config.StrikeLimit {
		return
	}
	agent.Banned = true
	if err := w.graph.Put(ctx, lib.AgentPath(agent.ID), banFields(lib.NowMS(time.Now()))); err != nil {
		w.log.Errorf("Writing the ban of agent %s failed with err: %s", agent.ID, err.Error())
		return
	}
	w.metrics.UpdateWarden(true)
	w.log.Warnf("Agent %s banned at %d merged strikes", agent.ID, agent.Strikes)
}

// banFields() are the leaves that mark an agent banned
func banFields(now int64) lib.Record {
	return lib.Record{lib.FieldBanned: true, lib.FieldOnline: false, lib.FieldBannedAt: now}
}

// strike() writes a new strike leaf and bans the agent once the limit is reached
func (w *Warden) strike(ctx context.Context, agent *lib.Agent, matched []string) (Verdict, lib.ErrorI) {
	now := lib.NowMS(time.Now())
	strikes := agent.Strikes + 1
	fields := lib.Record{
		lib.SetKey(lib.SetStrikes, uuid.NewString()): now,
		lib.FieldStrikes: strikes,
	}
	banned := strikes >= w.config.StrikeLimit
	if banned {
		for k, v := range banFields(now) {
			fields[k] = v
		}
	}
	if err := w.graph.Put(ctx, lib.AgentPath(agent.ID), fields); err != nil {
		return Verdict{}, err
	}
	w.metrics.UpdateWarden(banned)
	if banned {
		w.log.Warnf("Agent %s banned after %d strikes", agent.ID, strikes)
	}
	return Verdict{Allowed: false, Banned: banned, Strikes: strikes, Matched: matched}, nil
}

// pardon() forgives the newest strike that has no pardon yet
func (w *Warden) pardon(ctx context.Context, rec lib.Record, agent *lib.Agent, clearBan bool) (int, lib.ErrorI) {
	strikes, pardons := rec.MemberValues(lib.SetStrikes), rec.MemberValues(lib.SetPardons)
	open := make([]string, 0, len(strikes))
	for incident := range strikes {
		if _, forgiven := pardons[incident]; !forgiven {
			open = append(open, incident)
		}
	}
	if len(open) == 0 {
		return agent.Strikes, ErrNoStrikes(agent.ID)
	}
	// newest first; incident ids break timestamp ties
	sort.Slice(open, func(i, j int) bool {
		if strikes[open[i]] != strikes[open[j]] {
			return strikes[open[i]] > strikes[open[j]]
		}
		return open[i] > open[j]
	})
	remaining := agent.Strikes - 1
	fields := lib.Record{
		lib.SetKey(lib.SetPardons, open[0]): lib.NowMS(time.Now()),
		lib.FieldStrikes:                    remaining,
	}
	if agent.Banned && (remaining == 0 || (clearBan && remaining < w.config.StrikeLimit)) {
		fields[lib.FieldBanned] = false
		w.log.Infof("Ban of agent %s lifted", agent.ID)
	}
	if err := w.graph.Put(ctx, lib.AgentPath(agent.ID), fields); err != nil {
		return agent.Strikes, err
	}
	return remaining, nil
}
