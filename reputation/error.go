package reputation

import (
	"fmt"

	"github.com/p2pclaw/hive/lib"
)

// This file defines error objects for the Reputation module

func ErrAgentNotFound(agentID string) lib.ErrorI {
	return lib.NewError(lib.CodeAgentNotFound, lib.ReputationModule, fmt.Sprintf("agent %s not found", agentID)).
		WithHint("agents materialize on their first heartbeat; retry once the store has settled")
}

func ErrInvalidProgress(field string, value float64) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidProgress, lib.ReputationModule, fmt.Sprintf("progress field %s=%v is out of range", field, value)).
		WithHint("tps must be non-negative; work quality, information gain and quality must be in [0,1]")
}

func ErrInvalidHeartbeat(reason string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidHeartbeat, lib.ReputationModule, fmt.Sprintf("invalid heartbeat: %s", reason))
}
