package controller

import (
	"context"

	"github.com/p2pclaw/hive/fsm"
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/reputation"
	"github.com/p2pclaw/hive/warden"
)

/* This file exposes the node operations used by the rpc and the relay */

// AppealResult is the outcome of a strike appeal
type AppealResult struct {
	AgentID          string `json:"agentId"`
	StrikesRemaining int    `json:"strikesRemaining"`
}

// SubmitPaper() submits a paper to the mempool
func (c *Controller) SubmitPaper(ctx context.Context, sub fsm.Submission) (fsm.Receipt, lib.ErrorI) {
	return c.FSM.Submit(ctx, sub)
}

// ValidatePaper() applies a validator's judgement to a pending paper
func (c *Controller) ValidatePaper(ctx context.Context, paperID, validatorID string, approved bool, score float64) (fsm.Result, lib.ErrorI) {
	return c.FSM.Validate(ctx, paperID, validatorID, approved, score)
}

// GetPaper() returns the most authoritative copy of a paper
func (c *Controller) GetPaper(ctx context.Context, paperID string) (*lib.Paper, lib.ErrorI) {
	if !lib.ValidID(paperID) {
		return nil, lib.ErrInvalidID(paperID)
	}
	return c.FSM.Paper(ctx, paperID)
}

// Mempool() lists pending papers, newest first
func (c *Controller) Mempool(ctx context.Context, limit int) []*lib.Paper {
	return c.FSM.Mempool(ctx, limit)
}

// Verified() lists verified papers, newest first
func (c *Controller) Verified(ctx context.Context, limit int) []*lib.Paper {
	return c.FSM.Verified(ctx, limit)
}

// ScorePaper() computes the structural quality estimate of content without submitting it
func (c *Controller) ScorePaper(content string) fsm.OccamScore {
	return fsm.ScorePaper(c.Config.ConsensusConfig, content)
}

// GetRank() returns the derived rank of an agent
func (c *Controller) GetRank(ctx context.Context, agentID string) (reputation.Rank, lib.ErrorI) {
	return c.Reputation.GetRank(ctx, agentID)
}

// GetAgent() returns the public profile of a known agent
func (c *Controller) GetAgent(ctx context.Context, agentID string) (*lib.Agent, lib.ErrorI) {
	if !lib.ValidID(agentID) {
		return nil, lib.ErrInvalidID(agentID)
	}
	return c.Reputation.Profile(ctx, agentID)
}

// Heartbeat() records a presence signal and its optional progress report
func (c *Controller) Heartbeat(ctx context.Context, hb reputation.Heartbeat) (*lib.Agent, lib.ErrorI) {
	return c.Reputation.Heartbeat(ctx, hb)
}

// DetectRogueAgents() runs the fairness scan now
func (c *Controller) DetectRogueAgents(ctx context.Context) []string {
	return c.Reputation.DetectRogueAgents(ctx)
}

// InspectText() runs text through the warden on behalf of an agent
func (c *Controller) InspectText(ctx context.Context, agentID, text string) (warden.Verdict, lib.ErrorI) {
	return c.Warden.Inspect(ctx, agentID, text)
}

// Appeal() pardons the newest strike of an agent that is not banned
func (c *Controller) Appeal(ctx context.Context, agentID, reason string) (AppealResult, lib.ErrorI) {
	remaining, err := c.Warden.Appeal(ctx, agentID, reason)
	return AppealResult{AgentID: agentID, StrikesRemaining: remaining}, err
}

// Review() is the operator path that pardons a strike and optionally lifts a ban
func (c *Controller) Review(ctx context.Context, agentID string, clearBan bool) (warden.Verdict, lib.ErrorI) {
	return c.Warden.Review(ctx, agentID, clearBan)
}
