package fsm

import (
	"context"

	"github.com/p2pclaw/hive/lib"
)

// promote() moves a paper that reached the validation threshold to VERIFIED; repeating it is harmless
func (s *StateMachine) promote(ctx context.Context, p *lib.Paper) (Result, lib.ErrorI) {
	// another node may have finished first
	if rec, found := s.graph.Read(ctx, lib.VerifiedPaperPath(p.ID)); found {
		if existing := lib.PaperFromRecord(p.ID, rec); existing.Status.Terminal() {
			return resultOf(existing), nil
		}
	}
	now := lib.NowMS(s.now())
	verified := *p
	verified.Status, verified.PromotedAt = lib.StatusVerified, now
	// archival is best effort; the paper is verified with or without a reference
	if s.archiver != nil && verified.ArchiveCID == "" {
		if verified.ArchiveCID = s.archiver.Archive(ctx, verified.Content); verified.ArchiveCID == "" {
			s.log.Warnf("Paper %s verified without an archive reference", p.ID)
		}
	}
	rec := verified.ToRecord()
	rec[lib.FieldVerifiedAt] = now
	if err := s.graph.Put(ctx, lib.VerifiedPaperPath(p.ID), rec); err != nil {
		return Result{}, err
	}
	// the mempool copy stays behind as a tombstone
	tombstone := lib.Record{lib.FieldStatus: string(lib.StatusPromoted), lib.FieldPromotedAt: now}
	if verified.ArchiveCID != "" {
		tombstone[lib.FieldArchiveCID] = verified.ArchiveCID
	}
	if err := s.graph.Put(ctx, lib.MempoolPaperPath(p.ID), tombstone); err != nil {
		s.log.Warnf("Tombstone of paper %s failed with err: %s", p.ID, err.Error())
	}
	// one credit leaf per paper, so a racing promotion credits the author once
	if err := s.ranker.Credit(ctx, verified.AuthorID, verified.ID, verified.AverageScore); err != nil {
		s.log.Errorf("Crediting %s for paper %s failed with err: %s", verified.AuthorID, verified.ID, err.Error())
	}
	s.dedup.Register(&verified, true)
	s.metrics.IncPromoted()
	s.log.Infof("Paper %s VERIFIED with %d validations", verified.ID, verified.NetworkValidations)
	return resultOf(&verified), nil
}

// reject() moves a paper that reached the flag threshold to REJECTED
func (s *StateMachine) reject(ctx context.Context, p *lib.Paper) (Result, lib.ErrorI) {
	if rec, found := s.graph.Read(ctx, lib.VerifiedPaperPath(p.ID)); found {
		if existing := lib.PaperFromRecord(p.ID, rec); existing.Status.Terminal() {
			return resultOf(existing), nil
		}
	}
	now := lib.NowMS(s.now())
	rejected := *p
	rejected.Status, rejected.RejectedAt = lib.StatusRejected, now
	if err := s.graph.Put(ctx, lib.VerifiedPaperPath(p.ID), rejected.ToRecord()); err != nil {
		return Result{}, err
	}
	mark := lib.Record{lib.FieldStatus: string(lib.StatusRejected), lib.FieldRejectedAt: now}
	if err := s.graph.Put(ctx, lib.MempoolPaperPath(p.ID), mark); err != nil {
		s.log.Warnf("Marking mempool copy of %s rejected failed with err: %s", p.ID, err.Error())
	}
	s.metrics.IncRejected()
	s.log.Infof("Paper %s REJECTED with %d flags", rejected.ID, rejected.FlagCount)
	return resultOf(&rejected), nil
}
