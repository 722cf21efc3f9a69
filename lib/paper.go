package lib

import (
	"slices"
	"time"
)

// PaperStatus is the lifecycle state of a paper
type PaperStatus string

const (
	StatusMempool  PaperStatus = "MEMPOOL"  // pending peer validation
	StatusVerified PaperStatus = "VERIFIED" // peer confirmed, immutable
	StatusRejected PaperStatus = "REJECTED" // flagged out, immutable
	StatusPromoted PaperStatus = "PROMOTED" // tombstone left on the mempool copy after verification
)

// Terminal() returns true for states that never change again
func (s PaperStatus) Terminal() bool { return s == StatusVerified || s == StatusRejected }

// Paper field names in the store
const (
	FieldID                 = "id"
	FieldTitle              = "title"
	FieldContent            = "content"
	FieldAuthorID           = "authorId"
	FieldStatus             = "status"
	FieldNetworkValidations = "networkValidations"
	FieldFlagCount          = "flagCount"
	FieldAverageScore       = "averageScore"
	FieldCreatedAt          = "createdAt"
	FieldParentID           = "parentId"
	FieldVersion            = "version"
	FieldTier               = "tier"
	FieldNormalizedTitle    = "normalizedTitle"
	FieldContentHash        = "contentHash"
	FieldAbstractHash       = "abstractHash"
	FieldWordCount          = "wordCount"
	FieldArchiveCID         = "archiveCid"
	FieldPromotedAt         = "promotedAt"
	FieldRejectedAt         = "rejectedAt"
	FieldVerifiedAt         = "verifiedAt"

	SetValidators = "validators" // approving validator ids
	SetFlaggers   = "flaggers"   // flagging validator ids
	SetScores     = "scores"     // quality score of each approving validator
)

// Paper is a submitted document
type Paper struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	Content            string      `json:"content,omitempty"`
	AuthorID           string      `json:"authorId"`
	Status             PaperStatus `json:"status"`
	NetworkValidations int         `json:"networkValidations"`
	ValidatorIDs       []string    `json:"validatorIds"`
	FlaggerIDs         []string    `json:"flaggerIds,omitempty"`
	FlagCount          int         `json:"flagCount"`
	AverageScore       float64     `json:"averageScore"`
	CreatedAt          int64       `json:"createdAt"` // unix milliseconds
	ParentID           string      `json:"parentId,omitempty"`
	Version            int         `json:"version"`
	Tier               string      `json:"tier,omitempty"`
	NormalizedTitle    string      `json:"normalizedTitle,omitempty"`
	ContentHash        string      `json:"contentHash,omitempty"`
	AbstractHash       string      `json:"abstractHash,omitempty"`
	WordCount          int         `json:"wordCount"`
	ArchiveCID         string      `json:"archiveCid,omitempty"`
	PromotedAt         int64       `json:"promotedAt,omitempty"`
	RejectedAt         int64       `json:"rejectedAt,omitempty"`
}

// PaperFromRecord() decodes a store record; set-valued attributes are read from their member leaves
func PaperFromRecord(id string, r Record) *Paper {
	p := &Paper{
		ID:              id,
		Title:           r.String(FieldTitle),
		Content:         r.String(FieldContent),
		AuthorID:        r.String(FieldAuthorID),
		Status:          PaperStatus(r.String(FieldStatus)),
		ValidatorIDs:    r.Members(SetValidators),
		FlaggerIDs:      r.Members(SetFlaggers),
		AverageScore:    r.Float(FieldAverageScore),
		CreatedAt:       r.Int64(FieldCreatedAt),
		ParentID:        r.String(FieldParentID),
		Version:         r.Int(FieldVersion),
		Tier:            r.String(FieldTier),
		NormalizedTitle: r.String(FieldNormalizedTitle),
		ContentHash:     r.String(FieldContentHash),
		AbstractHash:    r.String(FieldAbstractHash),
		WordCount:       r.Int(FieldWordCount),
		ArchiveCID:      r.String(FieldArchiveCID),
		PromotedAt:      r.Int64(FieldPromotedAt),
		RejectedAt:      r.Int64(FieldRejectedAt),
	}
	if p.ID == "" {
		p.ID = r.String(FieldID)
	}
	// the member leaves are authoritative; the counters may lag a concurrent writer
	p.NetworkValidations = max(len(p.ValidatorIDs), r.Int(FieldNetworkValidations))
	p.FlagCount = max(len(p.FlaggerIDs), r.Int(FieldFlagCount))
	if p.Status == "" {
		p.Status = StatusMempool
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return p
}

// ToRecord() encodes the paper as a full record
func (p *Paper) ToRecord() Record {
	r := Record{
		FieldID:                 p.ID,
		FieldTitle:              p.Title,
		FieldContent:            p.Content,
		FieldAuthorID:           p.AuthorID,
		FieldStatus:             string(p.Status),
		FieldNetworkValidations: p.NetworkValidations,
		FieldFlagCount:          p.FlagCount,
		FieldAverageScore:       p.AverageScore,
		FieldCreatedAt:          p.CreatedAt,
		FieldVersion:            p.Version,
		FieldWordCount:          p.WordCount,
	}
	optional := map[string]string{
		FieldParentID:        p.ParentID,
		FieldTier:            p.Tier,
		FieldNormalizedTitle: p.NormalizedTitle,
		FieldContentHash:     p.ContentHash,
		FieldAbstractHash:    p.AbstractHash,
		FieldArchiveCID:      p.ArchiveCID,
	}
	for k, v := range optional {
		if v != "" {
			r[k] = v
		}
	}
	if p.PromotedAt != 0 {
		r[FieldPromotedAt] = p.PromotedAt
	}
	if p.RejectedAt != 0 {
		r[FieldRejectedAt] = p.RejectedAt
	}
	for _, v := range p.ValidatorIDs {
		r[SetKey(SetValidators, v)] = true
	}
	for _, f := range p.FlaggerIDs {
		r[SetKey(SetFlaggers, f)] = true
	}
	return r
}

// HasValidator() returns true if the agent already approved the paper
func (p *Paper) HasValidator(agentID string) bool { return slices.Contains(p.ValidatorIDs, agentID) }

// HasFlagger() returns true if the agent already flagged the paper
func (p *Paper) HasFlagger(agentID string) bool { return slices.Contains(p.FlaggerIDs, agentID) }

// Summary() returns a copy without the content body for listings
func (p *Paper) Summary() *Paper {
	cp := *p
	cp.Content = ""
	return &cp
}

// ValidationRecord is one agent's judgement of one paper
type ValidationRecord struct {
	PaperID      string  `json:"paperId"`
	ValidatorID  string  `json:"validatorId"`
	Approved     bool    `json:"approved"`
	QualityScore float64 `json:"qualityScore"`
	Timestamp    int64   `json:"timestamp"` // unix milliseconds
}

// ToRecord() encodes the validation record
func (v *ValidationRecord) ToRecord() Record {
	return Record{
		"paperId":      v.PaperID,
		"validatorId":  v.ValidatorID,
		"approved":     v.Approved,
		"qualityScore": v.QualityScore,
		"timestamp":    v.Timestamp,
	}
}

// ValidationPath() returns the store path of a validation record
func ValidationPath(paperID, validatorID string) string {
	return JoinPath(ValidationsPath, paperID, validatorID)
}

// NowMS() returns the unix millisecond timestamp of t
func NowMS(t time.Time) int64 { return t.UnixMilli() }
