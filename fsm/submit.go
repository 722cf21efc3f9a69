package fsm

import (
	"context"

	"github.com/google/uuid"
	"github.com/p2pclaw/hive/dedup"
	"github.com/p2pclaw/hive/lib"
)

// Receipt is the result of an accepted submission
type Receipt struct {
	PaperID  string          `json:"paperId"`
	Status   lib.PaperStatus `json:"status"`
	Version  int             `json:"version"`
	ParentID string          `json:"parentId,omitempty"`
	Warning  *dedup.Verdict  `json:"warning,omitempty"` // similar work the author should know about
}

// Submit() runs a submission through format, moderation and dedup checks and writes it to the mempool
func (s *StateMachine) Submit(ctx context.Context, sub Submission) (receipt Receipt, err lib.ErrorI) {
	defer func() {
		if err != nil {
			s.metrics.UpdateSubmission(string(err.Reason()))
		}
	}()
	// check the format
	if err = CheckFormat(s.config, sub); err != nil {
		return
	}
	sub.normalize()
	// banned authors may not publish
	if s.moderator.Banned(ctx, sub.AuthorID) {
		return receipt, ErrAuthorBanned(sub.AuthorID)
	}
	// the warden sees the text before anything is stored
	verdict, err := s.moderator.Inspect(ctx, sub.AuthorID, sub.Title+"\n"+sub.Content)
	if err != nil {
		return
	}
	if !verdict.Allowed {
		if verdict.Banned && len(verdict.Matched) == 0 {
			return receipt, ErrAuthorBanned(sub.AuthorID)
		}
		return receipt, ErrModerationRejected(verdict.Matched, verdict.Strikes)
	}
	version, exclude := 1, []string(nil)
	if sub.ParentID != "" {
		parent, e := s.parentOf(ctx, sub)
		if e != nil {
			return receipt, e
		}
		version, exclude = parent.Version+1, []string{parent.ID}
	}
	// duplicate detection
	check := s.dedup.Check(ctx, sub.Title, sub.Content, exclude...)
	switch {
	case check.Decision == dedup.Reject && !sub.Force:
		return receipt, dedup.ErrDuplicate(check)
	case check.Decision != dedup.Accept:
		receipt.Warning = &check
		s.log.Infof("Submission %q resembles %s (%.2f)", sub.Title, check.ExistingID, check.Similarity)
	}
	// write the pending copy
	fp := dedup.NewFingerprint(sub.Title, sub.Content)
	p := &lib.Paper{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Title:           sub.Title,
		Content:         sub.Content,
		AuthorID:        sub.AuthorID,
		Status:          lib.StatusMempool,
		CreatedAt:       lib.NowMS(s.now()),
		ParentID:        sub.ParentID,
		Version:         version,
		Tier:            sub.Tier,
		NormalizedTitle: fp.NormalizedTitle,
		ContentHash:     fp.ContentHash,
		AbstractHash:    fp.AbstractHash,
		WordCount:       fp.WordCount,
	}
	if err = s.graph.Put(ctx, lib.MempoolPaperPath(p.ID), p.ToRecord()); err != nil {
		return
	}
	s.dedup.Register(p, false)
	outcome := "accepted"
	if receipt.Warning != nil {
		outcome = "warned"
	}
	s.metrics.UpdateSubmission(outcome)
	s.log.Infof("Paper %s (v%d) entered the mempool from %s", p.ID, p.Version, p.AuthorID)
	receipt.PaperID, receipt.Status, receipt.Version, receipt.ParentID = p.ID, p.Status, p.Version, p.ParentID
	return receipt, nil
}

// parentOf() loads the verified paper a revision builds on
func (s *StateMachine) parentOf(ctx context.Context, sub Submission) (*lib.Paper, lib.ErrorI) {
	rec, found := s.graph.Read(ctx, lib.VerifiedPaperPath(sub.ParentID))
	if !found {
		return nil, ErrParentNotVerified(sub.ParentID)
	}
	parent := lib.PaperFromRecord(sub.ParentID, rec)
	if parent.Status != lib.StatusVerified {
		return nil, ErrParentNotVerified(sub.ParentID)
	}
	if parent.AuthorID != sub.AuthorID {
		return nil, ErrRevisionAuthor(sub.ParentID)
	}
	return parent, nil
}
