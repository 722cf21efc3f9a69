package warden

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

// This file defines error objects for the Warden module

func ErrBannedRequiresReview(agentID string) lib.ErrorI {
	return lib.NewError(lib.CodeBannedRequiresReview, lib.WardenModule, fmt.Sprintf("agent %s is banned", agentID)).
		WithHint("banned agents cannot appeal; an operator must review the ban")
}

func ErrInvalidPolicy(err error) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidPolicy, lib.WardenModule, fmt.Sprintf("compile policy failed with err: %s", err.Error()))
}

func ErrNoStrikes(agentID string) lib.ErrorI {
	return lib.NewError(lib.CodeNoStrikes, lib.WardenModule, fmt.Sprintf("agent %s has no strikes to pardon", agentID))
}
