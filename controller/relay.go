package controller

import (
	"context"

	"github.com/p2pclaw/hive/fsm"
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/reputation"
	"github.com/p2pclaw/hive/warden"
)

// ListenRelay() consumes messages from the external transport until the context is canceled or the channel closes
func (c *Controller) ListenRelay(ctx context.Context, messages <-chan lib.RelayMessage) {
	defer lib.CatchPanic(c.log)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				c.log.Debug("Relay channel closed")
				return
			}
			if err := c.HandleRelay(ctx, msg); err != nil {
				c.log.Warnf("Relay %s from %s failed with err: %s", msg.Kind, msg.SenderID, err.Error())
			}
		}
	}
}

// HandleRelay() routes one relay message: chat to the warden, heartbeats to the reputation engine and
// paper announcements to the submission path
func (c *Controller) HandleRelay(ctx context.Context, msg lib.RelayMessage) lib.ErrorI {
	switch msg.Kind {
	case lib.RelayChat:
		_, err := c.Chat(ctx, msg.SenderID, msg.Text)
		return err
	case lib.RelayHeartbeat:
		_, err := c.Heartbeat(ctx, reputation.Heartbeat{
			AgentID:     msg.SenderID,
			Name:        msg.Name,
			IdentityKey: msg.IdentityKey,
			Consumed:    msg.Consumed,
			Contributed: msg.Contributed,
			Report: reputation.Report{
				TPS:         msg.TPS,
				WorkQuality: msg.WorkQuality,
				InfoGain:    msg.InfoGain,
				Quality:     msg.Quality,
			},
		})
		return err
	case lib.RelayPaper:
		if msg.Paper == nil {
			return ErrEmptyRelayPaper()
		}
		author := msg.Paper.AuthorID
		if author == "" {
			author = msg.SenderID
		}
		// agents only announce their own work
		if author != msg.SenderID {
			return ErrRelayAuthorMismatch(msg.SenderID, author)
		}
		receipt, err := c.SubmitPaper(ctx, fsm.Submission{
			Title:    msg.Paper.Title,
			Content:  msg.Paper.Content,
			AuthorID: author,
			Tier:     msg.Paper.Tier,
			ParentID: msg.Paper.ParentID,
		})
		if err != nil {
			return err
		}
		c.log.Infof("Relayed paper from %s entered the mempool as %s", author, receipt.PaperID)
		return nil
	default:
		return ErrUnknownRelayKind(msg.Kind)
	}
}

// Chat() inspects a chat message posted to the shared channel
func (c *Controller) Chat(ctx context.Context, agentID, text string) (warden.Verdict, lib.ErrorI) {
	verdict, err := c.InspectText(ctx, agentID, text)
	if err != nil {
		return verdict, err
	}
	if !verdict.Allowed {
		c.log.Infof("Chat from %s blocked (strikes=%d banned=%t)", agentID, verdict.Strikes, verdict.Banned)
	}
	return verdict, nil
}
