package fsm

import (
	"context"
	"math"

	"github.com/p2pclaw/hive/lib"
	"gonum.org/v1/gonum/stat"
)

// Result is the state of a paper after a validation
type Result struct {
	PaperID            string          `json:"paperId"`
	Status             lib.PaperStatus `json:"status"`
	NetworkValidations int             `json:"networkValidations"`
	FlagCount          int             `json:"flagCount"`
	AverageScore       float64         `json:"averageScore"`
}

// resultOf() summarizes a paper
func resultOf(p *lib.Paper) Result {
	return Result{
		PaperID:            p.ID,
		Status:             p.Status,
		NetworkValidations: p.NetworkValidations,
		FlagCount:          p.FlagCount,
		AverageScore:       p.AverageScore,
	}
}

// Validate() applies one agent's judgement to a pending paper
func (s *StateMachine) Validate(ctx context.Context, paperID, validatorID string, approved bool, score float64) (result Result, err lib.ErrorI) {
	defer func() {
		if err != nil {
			s.metrics.UpdateValidation(string(err.Reason()))
		}
	}()
	switch {
	case !lib.ValidID(paperID):
		return result, lib.ErrInvalidID(paperID)
	case validatorID == "":
		return result, ErrEmptyAgentID()
	case !lib.ValidID(validatorID):
		return result, lib.ErrInvalidID(validatorID)
	case math.IsNaN(score) || score < 0 || score > 1:
		return result, ErrInvalidQualityScore(score)
	}
	p, err := s.Paper(ctx, paperID)
	if err != nil {
		return
	}
	// terminal papers answer with their current state
	if p.Status.Terminal() {
		return resultOf(p), nil
	}
	if p.AuthorID == validatorID {
		return result, ErrSelfValidation(paperID)
	}
	if p.HasValidator(validatorID) || p.HasFlagger(validatorID) {
		return result, ErrAlreadyValidated(paperID, validatorID)
	}
	if _, found := s.graph.Read(ctx, lib.ValidationPath(paperID, validatorID)); found {
		return result, ErrAlreadyValidated(paperID, validatorID)
	}
	if s.moderator.Banned(ctx, validatorID) || s.ranker.VotingWeight(ctx, validatorID) == 0 {
		return result, ErrInsufficientRank(validatorID)
	}
	// count the vote on the paper first; the validation record only ever describes a counted vote
	if approved {
		err = s.countApproval(ctx, p, validatorID, score)
	} else {
		err = s.countFlag(ctx, p, validatorID)
	}
	if err != nil {
		return
	}
	s.recordJudgement(ctx, paperID, validatorID, approved, score)
	if approved {
		s.metrics.UpdateValidation("approved")
		if p.NetworkValidations < s.config.ValidationThreshold {
			return resultOf(p), nil
		}
		return s.promote(ctx, p)
	}
	s.metrics.UpdateValidation("flagged")
	if p.FlagCount < s.config.FlagThreshold {
		return resultOf(p), nil
	}
	return s.reject(ctx, p)
}

// recordJudgement() writes the validation record and the validator's tally; both follow a vote already counted
func (s *StateMachine) recordJudgement(ctx context.Context, paperID, validatorID string, approved bool, score float64) {
	record := &lib.ValidationRecord{
		PaperID:      paperID,
		ValidatorID:  validatorID,
		Approved:     approved,
		QualityScore: score,
		Timestamp:    lib.NowMS(s.now()),
	}
	if err := s.graph.Put(ctx, lib.ValidationPath(paperID, validatorID), record.ToRecord()); err != nil {
		s.log.Warnf("Validation record of %s by %s failed with err: %s", paperID, validatorID, err.Error())
	}
	if err := s.ranker.RecordValidation(ctx, validatorID, paperID); err != nil {
		s.log.Warnf("Recording validation of %s by %s failed with err: %s", paperID, validatorID, err.Error())
	}
}

// countApproval() adds the validator and its score to the paper and refreshes the tally from every approval
// visible in the graph
func (s *StateMachine) countApproval(ctx context.Context, p *lib.Paper, validatorID string, score float64) lib.ErrorI {
	n := len(p.ValidatorIDs) + 1
	p.AverageScore = (p.AverageScore*float64(n-1) + score) / float64(n)
	fields := lib.Record{
		lib.SetKey(lib.SetValidators, validatorID): true,
		lib.SetKey(lib.SetScores, validatorID):     score,
		lib.FieldNetworkValidations:                n,
		lib.FieldAverageScore:                      p.AverageScore,
	}
	if err := s.graph.Put(ctx, lib.MempoolPaperPath(p.ID), fields); err != nil {
		return err
	}
	// pick up approvals that landed concurrently on other nodes
	if rec, found := s.graph.Read(ctx, lib.MempoolPaperPath(p.ID)); found {
		merged := lib.PaperFromRecord(p.ID, rec)
		if merged.HasValidator(validatorID) {
			p.ValidatorIDs = merged.ValidatorIDs
			p.AverageScore = meanScore(rec, merged.ValidatorIDs, p.AverageScore)
		}
	}
	if !p.HasValidator(validatorID) {
		p.ValidatorIDs = append(p.ValidatorIDs, validatorID)
	}
	p.NetworkValidations = len(p.ValidatorIDs)
	return nil
}

// countFlag() adds the validator to the flaggers of the paper
func (s *StateMachine) countFlag(ctx context.Context, p *lib.Paper, validatorID string) lib.ErrorI {
	fields := lib.Record{
		lib.SetKey(lib.SetFlaggers, validatorID): true,
		lib.FieldFlagCount:                       len(p.FlaggerIDs) + 1,
	}
	if err := s.graph.Put(ctx, lib.MempoolPaperPath(p.ID), fields); err != nil {
		return err
	}
	if rec, found := s.graph.Read(ctx, lib.MempoolPaperPath(p.ID)); found {
		merged := lib.PaperFromRecord(p.ID, rec)
		if merged.HasFlagger(validatorID) {
			p.FlaggerIDs = merged.FlaggerIDs
		}
	}
	if !p.HasFlagger(validatorID) {
		p.FlaggerIDs = append(p.FlaggerIDs, validatorID)
	}
	p.FlagCount = len(p.FlaggerIDs)
	return nil
}

// meanScore() averages the recorded scores of the approving validators; fallback is used when none are recorded
func meanScore(rec lib.Record, validators []string, fallback float64) float64 {
	recorded := rec.MemberValues(lib.SetScores)
	scores := make([]float64, 0, len(validators))
	for _, v := range validators {
		if score, ok := recorded[v]; ok {
			scores = append(scores, score)
		}
	}
	if len(scores) == 0 {
		return fallback
	}
	return stat.Mean(scores, nil)
}
