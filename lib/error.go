package lib

import (
	"errors"
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	Reason() Reason      // Returns the caller facing taxonomy name
	Hint() string        // Returns a remediation hint (may be empty)
	Data() any           // Returns structured details (may be nil)
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

// Reason is the stable, caller facing name of an error class
type Reason string

type Error struct {
	ECode   ErrorCode   `json:"code"`           // Error code
	EModule ErrorModule `json:"module"`         // Error module
	EReason Reason      `json:"reason"`         // Error taxonomy name
	Msg     string      `json:"msg"`            // Error message
	EHint   string      `json:"hint,omitempty"` // Remediation hint
	EData   any         `json:"data,omitempty"` // Structured details
}

// NewError() constructs a new Error instance; the reason is derived from the code and module
func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, EReason: reasonFor(code, module), Msg: msg}
}

// WithHint() attaches a remediation hint to the error
func (p *Error) WithHint(hint string) *Error {
	p.EHint = hint
	return p
}

// WithData() attaches structured details to the error
func (p *Error) WithData(data any) *Error {
	p.EData = data
	return p
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// Reason() returns the taxonomy name
func (p *Error) Reason() Reason { return p.EReason }

// Hint() returns the remediation hint
func (p *Error) Hint() string { return p.EHint }

// Data() returns the structured details
func (p *Error) Data() any { return p.EData }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code, reason and message
func (p *Error) Error() string {
	if p.EHint != "" {
		return fmt.Sprintf("\nModule:  %s\nCode:    %d\nReason:  %s\nMessage: %s\nHint:    %s", p.EModule, p.ECode, p.EReason, p.Msg, p.EHint)
	}
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nReason:  %s\nMessage: %s", p.EModule, p.ECode, p.EReason, p.Msg)
}

// ReasonOf() extracts the taxonomy name from any error, returning ReasonInternal for foreign errors
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var e ErrorI
	if errors.As(err, &e) {
		return e.Reason()
	}
	return ReasonInternal
}

const (
	ReasonValidationFailed   Reason = "VALIDATION_FAILED"
	ReasonDuplicate          Reason = "DUPLICATE"
	ReasonNotFound           Reason = "NOT_FOUND"
	ReasonAlreadyValidated   Reason = "ALREADY_VALIDATED"
	ReasonSelfValidation     Reason = "SELF_VALIDATION"
	ReasonInsufficientRank   Reason = "INSUFFICIENT_RANK"
	ReasonStoreUnavailable   Reason = "STORE_UNAVAILABLE"
	ReasonModerationRejected Reason = "MODERATION_REJECTED"
	ReasonBanned             Reason = "BANNED"
	ReasonInternal           Reason = "INTERNAL"
)

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal   ErrorCode = 1
	CodeJSONUnmarshal ErrorCode = 2
	CodeServerTimeout ErrorCode = 3
	CodeInvalidID     ErrorCode = 4
	CodeInvalidRelay  ErrorCode = 5

	// Store Module
	StoreModule ErrorModule = "store"

	// Store Module Error Codes
	CodeOpenDB           ErrorCode = 1
	CodeCloseDB          ErrorCode = 2
	CodeStoreSet         ErrorCode = 3
	CodeStoreGet         ErrorCode = 4
	CodeStoreIterate     ErrorCode = 5
	CodeNoReplicas       ErrorCode = 6
	CodeNoWriteAck       ErrorCode = 7
	CodeEncodeField      ErrorCode = 8
	CodeDecodeField      ErrorCode = 9
	CodeInvalidStorePath ErrorCode = 10

	// Dedup Module
	DedupModule ErrorModule = "dedup"

	// Dedup Module Error Codes
	CodeDuplicatePaper ErrorCode = 1
	CodeNewCache       ErrorCode = 2

	// Consensus Module (the paper validation state machine)
	ConsensusModule ErrorModule = "consensus"

	// Consensus Module Error Codes
	CodeTitleTooShort       ErrorCode = 1
	CodeContentTooShort     ErrorCode = 2
	CodeMissingSections     ErrorCode = 3
	CodeTooFewReferences    ErrorCode = 4
	CodeInvalidSubmission   ErrorCode = 5
	CodePaperNotFound       ErrorCode = 6
	CodeAlreadyValidated    ErrorCode = 7
	CodeSelfValidation      ErrorCode = 8
	CodeInsufficientRank    ErrorCode = 9
	CodeInvalidQualityScore ErrorCode = 10
	CodeParentNotVerified   ErrorCode = 11
	CodeRevisionAuthor      ErrorCode = 12
	CodeAuthorBanned        ErrorCode = 13
	CodeModerationRejected  ErrorCode = 14
	CodeEmptyAgentID        ErrorCode = 15

	// Reputation Module
	ReputationModule ErrorModule = "reputation"

	// Reputation Module Error Codes
	CodeAgentNotFound    ErrorCode = 1
	CodeInvalidProgress  ErrorCode = 2
	CodeInvalidHeartbeat ErrorCode = 3

	// Warden Module
	WardenModule ErrorModule = "warden"

	// Warden Module Error Codes
	CodeBannedRequiresReview ErrorCode = 1
	CodeInvalidPolicy        ErrorCode = 2
	CodeNoStrikes            ErrorCode = 3

	// Archive Module
	ArchiveModule ErrorModule = "archive"

	// Archive Module Error Codes
	CodeArchiveFailed   ErrorCode = 1
	CodeArchiveResponse ErrorCode = 2

	// RPC Module
	RPCModule ErrorModule = "rpc"

	// RPC Module Error Codes
	CodeRateLimited ErrorCode = 1
	CodeBadRequest  ErrorCode = 2
	CodePostRequest ErrorCode = 3
	CodeGetRequest  ErrorCode = 4
	CodeHttpStatus  ErrorCode = 5
	CodeReadBody    ErrorCode = 6
)

// reasonFor() maps a module specific code to its taxonomy name
func reasonFor(code ErrorCode, module ErrorModule) Reason {
	switch module {
	case StoreModule:
		return ReasonStoreUnavailable
	case ArchiveModule:
		return ReasonStoreUnavailable
	case DedupModule:
		if code == CodeDuplicatePaper {
			return ReasonDuplicate
		}
	case ConsensusModule:
		switch code {
		case CodeTitleTooShort, CodeContentTooShort, CodeMissingSections, CodeTooFewReferences,
			CodeInvalidSubmission, CodeInvalidQualityScore, CodeParentNotVerified, CodeRevisionAuthor, CodeEmptyAgentID:
			return ReasonValidationFailed
		case CodePaperNotFound:
			return ReasonNotFound
		case CodeAlreadyValidated:
			return ReasonAlreadyValidated
		case CodeSelfValidation:
			return ReasonSelfValidation
		case CodeInsufficientRank:
			return ReasonInsufficientRank
		case CodeAuthorBanned:
			return ReasonBanned
		case CodeModerationRejected:
			return ReasonModerationRejected
		}
	case ReputationModule:
		switch code {
		case CodeAgentNotFound:
			return ReasonNotFound
		default:
			return ReasonValidationFailed
		}
	case WardenModule:
		switch code {
		case CodeBannedRequiresReview:
			return ReasonBanned
		default:
			return ReasonValidationFailed
		}
	case MainModule:
		switch code {
		case CodeInvalidID, CodeJSONUnmarshal, CodeInvalidRelay:
			return ReasonValidationFailed
		}
	case RPCModule:
		if code == CodeBadRequest {
			return ReasonValidationFailed
		}
	}
	return ReasonInternal
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrServerTimeout() ErrorI {
	return NewError(CodeServerTimeout, MainModule, "server timeout")
}

func ErrInvalidID(id string) ErrorI {
	return NewError(CodeInvalidID, MainModule, fmt.Sprintf("invalid id %q", id)).
		WithHint("ids must be non-empty and must not contain '/'")
}
