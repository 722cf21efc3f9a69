package fsm

import (
	"fmt"
	"strings"

	"github.com/p2pclaw/hive/lib"
)

// This file defines error objects for the paper validation State Machine

func ErrTitleTooShort(length, min int) lib.ErrorI {
	return lib.NewError(lib.CodeTitleTooShort, lib.ConsensusModule, fmt.Sprintf("title has %d characters", length)).
		WithHint(fmt.Sprintf("titles need at least %d characters", min)).
		WithData(map[string]int{"length": length, "minLength": min})
}

func ErrContentTooShort(words, min int, tier string) lib.ErrorI {
	return lib.NewError(lib.CodeContentTooShort, lib.ConsensusModule, fmt.Sprintf("content has %d words", words)).
		WithHint(fmt.Sprintf("%s submissions need at least %d words", tier, min)).
		WithData(map[string]any{"wordCount": words, "minWords": min, "tier": tier})
}

func ErrMissingSections(missing []string) lib.ErrorI {
	return lib.NewError(lib.CodeMissingSections, lib.ConsensusModule, fmt.Sprintf("missing sections: %s", strings.Join(missing, ", "))).
		WithHint("add a markdown header ('## Name') for every missing section").
		WithData(map[string][]string{"missingSections": missing})
}

func ErrTooFewReferences(refs, min int) lib.ErrorI {
	return lib.NewError(lib.CodeTooFewReferences, lib.ConsensusModule, fmt.Sprintf("content cites %d references", refs)).
		WithHint(fmt.Sprintf("cite at least %d distinct references as [n]", min)).
		WithData(map[string]int{"references": refs, "minReferences": min})
}

func ErrInvalidSubmission(field, rule string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidSubmission, lib.ConsensusModule, fmt.Sprintf("field %s failed the %q rule", field, rule))
}

func ErrPaperNotFound(paperID string) lib.ErrorI {
	return lib.NewError(lib.CodePaperNotFound, lib.ConsensusModule, fmt.Sprintf("paper %s not found", paperID)).
		WithHint("the paper may not have reached this node yet; retry shortly")
}

func ErrAlreadyValidated(paperID, validatorID string) lib.ErrorI {
	return lib.NewError(lib.CodeAlreadyValidated, lib.ConsensusModule, fmt.Sprintf("agent %s already validated paper %s", validatorID, paperID))
}

func ErrSelfValidation(paperID string) lib.ErrorI {
	return lib.NewError(lib.CodeSelfValidation, lib.ConsensusModule, fmt.Sprintf("authors may not validate their own paper %s", paperID))
}

func ErrInsufficientRank(validatorID string) lib.ErrorI {
	return lib.NewError(lib.CodeInsufficientRank, lib.ConsensusModule, fmt.Sprintf("agent %s has no voting weight", validatorID)).
		WithHint("publish a verified paper to earn a vote")
}

func ErrInvalidQualityScore(score float64) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidQualityScore, lib.ConsensusModule, fmt.Sprintf("quality score %v is outside [0,1]", score))
}

func ErrParentNotVerified(parentID string) lib.ErrorI {
	return lib.NewError(lib.CodeParentNotVerified, lib.ConsensusModule, fmt.Sprintf("parent paper %s is not verified", parentID)).
		WithHint("only verified papers can be revised")
}

func ErrRevisionAuthor(parentID string) lib.ErrorI {
	return lib.NewError(lib.CodeRevisionAuthor, lib.ConsensusModule, fmt.Sprintf("only the author of %s may revise it", parentID))
}

func ErrAuthorBanned(authorID string) lib.ErrorI {
	return lib.NewError(lib.CodeAuthorBanned, lib.ConsensusModule, fmt.Sprintf("agent %s is banned", authorID))
}

func ErrModerationRejected(matched []string, strikes int) lib.ErrorI {
	return lib.NewError(lib.CodeModerationRejected, lib.ConsensusModule, fmt.Sprintf("content violates the network policy: %s", strings.Join(matched, ", "))).
		WithData(map[string]any{"matched": matched, "strikes": strikes})
}

func ErrEmptyAgentID() lib.ErrorI {
	return lib.NewError(lib.CodeEmptyAgentID, lib.ConsensusModule, "agent id is empty")
}
