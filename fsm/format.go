package fsm

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/p2pclaw/hive/lib"
)

/* This file implements the submission format rules */

const (
	TierDraft    = "draft"    // work in progress, reduced word minimum
	TierRevision = "revision" // a new version of a verified paper, reduced word minimum
	TierFinal    = "final"    // a complete paper
)

// Submission is a paper as handed to Submit()
type Submission struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	AuthorID string `json:"authorId" validate:"required,segment"`
	Tier     string `json:"tier,omitempty" validate:"omitempty,oneof=draft revision final"`
	ParentID string `json:"parentId,omitempty" validate:"omitempty,segment"`
	Force    bool   `json:"force,omitempty"` // submit even when the dedup engine would reject
}

// submissionValidate validates submission structs; 'segment' ensures an id can be used as a store path segment
var submissionValidate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("segment", func(fl validator.FieldLevel) bool { return lib.ValidID(fl.Field().String()) })
	return v
}()

// normalize() trims the submission and fills in the tier
func (s *Submission) normalize() {
	s.Title, s.AuthorID, s.ParentID = strings.TrimSpace(s.Title), strings.TrimSpace(s.AuthorID), strings.TrimSpace(s.ParentID)
	s.Tier = strings.ToLower(strings.TrimSpace(s.Tier))
	switch {
	case s.ParentID != "":
		s.Tier = TierRevision
	case s.Tier == "":
		s.Tier = TierFinal
	}
}

// CheckFormat() enforces the publication rules: title length, word minimum per tier, required sections and references
func CheckFormat(config lib.ConsensusConfig, s Submission) lib.ErrorI {
	s.normalize()
	minWords := config.FinalMinWords
	if s.Tier != TierFinal {
		minWords = config.DraftMinWords
	}
	if err := submissionValidate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return ErrInvalidSubmission("submission", err.Error())
		}
		// report the first violated rule
		switch fe := fieldErrs[0]; {
		case fe.Field() == "AuthorID" && fe.Tag() == "required":
			return ErrEmptyAgentID()
		case fe.Field() == "Title":
			return ErrTitleTooShort(0, config.MinTitleLength)
		case fe.Field() == "Content":
			return ErrContentTooShort(0, minWords, s.Tier)
		default:
			return ErrInvalidSubmission(fe.Field(), fe.Tag())
		}
	}
	if n := utf8.RuneCountInString(s.Title); n < config.MinTitleLength {
		return ErrTitleTooShort(n, config.MinTitleLength)
	}
	if words := lib.WordCount(s.Content); words < minWords {
		return ErrContentTooShort(words, minWords, s.Tier)
	}
	if missing := lib.MissingSections(s.Content, config.RequiredSections); len(missing) != 0 {
		return ErrMissingSections(missing)
	}
	if refs := lib.ReferenceCount(s.Content); refs < config.MinReferences {
		return ErrTooFewReferences(refs, config.MinReferences)
	}
	return nil
}
