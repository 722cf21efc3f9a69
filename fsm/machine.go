package fsm

import (
	"context"
	"sort"
	"time"

	"github.com/p2pclaw/hive/archive"
	"github.com/p2pclaw/hive/dedup"
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/warden"
)

/*
	StateMachine moves papers through their lifecycle: MEMPOOL -> VERIFIED or MEMPOOL -> REJECTED.

	There is no lock anywhere. Every transition is a read of this node's settled view followed by a conditional
	write of member leaves, and every terminal write is safe to repeat: two nodes racing across the validation
	threshold both write the same VERIFIED copy and the same author credit leaf.
*/

// DedupI is the duplicate detection capability consumed by the state machine
type DedupI interface {
	Check(ctx context.Context, title, content string, exclude ...string) dedup.Verdict
	Register(p *lib.Paper, verified bool)
}

// RankerI is the reputation capability consumed by the state machine
type RankerI interface {
	VotingWeight(ctx context.Context, agentID string) int
	Credit(ctx context.Context, agentID, paperID string, score float64) lib.ErrorI
	RecordValidation(ctx context.Context, agentID, paperID string) lib.ErrorI
}

// ModeratorI is the moderation capability consumed by the state machine
type ModeratorI interface {
	Inspect(ctx context.Context, agentID, text string) (warden.Verdict, lib.ErrorI)
	Banned(ctx context.Context, agentID string) bool
}

// StateMachine is the paper validation state machine
type StateMachine struct {
	graph     lib.GraphI
	dedup     DedupI
	ranker    RankerI
	moderator ModeratorI
	archiver  archive.ArchiverI // optional
	config    lib.ConsensusConfig
	metrics   *lib.Metrics
	log       lib.LoggerI
	now       func() time.Time
}

// New() creates a state machine over the graph
func New(config lib.ConsensusConfig, graph lib.GraphI, d DedupI, r RankerI, m ModeratorI, a archive.ArchiverI,
	metrics *lib.Metrics, log lib.LoggerI) *StateMachine {
	return &StateMachine{
		graph:     graph,
		dedup:     d,
		ranker:    r,
		moderator: m,
		archiver:  a,
		config:    config,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Paper() returns the most authoritative copy of a paper visible to this node
func (s *StateMachine) Paper(ctx context.Context, paperID string) (*lib.Paper, lib.ErrorI) {
	if !lib.ValidID(paperID) {
		return nil, lib.ErrInvalidID(paperID)
	}
	// the terminal copy wins
	if rec, found := s.graph.Read(ctx, lib.VerifiedPaperPath(paperID)); found {
		return lib.PaperFromRecord(paperID, rec), nil
	}
	rec, found := s.graph.Read(ctx, lib.MempoolPaperPath(paperID))
	if !found {
		return nil, ErrPaperNotFound(paperID)
	}
	p := lib.PaperFromRecord(paperID, rec)
	// the tombstone is only written after the verified copy
	if p.Status == lib.StatusPromoted {
		p.Status = lib.StatusVerified
	}
	return p, nil
}

// Mempool() lists the pending papers visible to this node, newest first, without their content
func (s *StateMachine) Mempool(ctx context.Context, limit int) []*lib.Paper {
	pending := make([]*lib.Paper, 0)
	for id, rec := range s.graph.MapChildren(ctx, lib.MempoolPath) {
		if p := lib.PaperFromRecord(id, rec); p.Status == lib.StatusMempool {
			pending = append(pending, p.Summary())
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt != pending[j].CreatedAt {
			return pending[i].CreatedAt > pending[j].CreatedAt
		}
		return pending[i].ID > pending[j].ID
	})
	if limit <= 0 {
		return pending
	}
	return lib.TruncateSlice(pending, limit)
}

// Verified() lists the verified papers visible to this node, newest first, without their content
func (s *StateMachine) Verified(ctx context.Context, limit int) []*lib.Paper {
	verified := make([]*lib.Paper, 0)
	for id, rec := range s.graph.MapChildren(ctx, lib.PapersPath) {
		if p := lib.PaperFromRecord(id, rec); p.Status == lib.StatusVerified {
			verified = append(verified, p.Summary())
		}
	}
	sort.Slice(verified, func(i, j int) bool {
		if verified[i].PromotedAt != verified[j].PromotedAt {
			return verified[i].PromotedAt > verified[j].PromotedAt
		}
		return verified[i].ID > verified[j].ID
	})
	if limit <= 0 {
		return verified
	}
	return lib.TruncateSlice(verified, limit)
}
