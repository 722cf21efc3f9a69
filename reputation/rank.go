package reputation

import (
	"github.com/p2pclaw/hive/lib"
	"github.com/p2pclaw/hive/lib/crypto"
	"gonum.org/v1/gonum/stat"
)

// Tier is a rank bracket
type Tier string

const (
	TierNewcomer   Tier = "NEWCOMER"
	TierResearcher Tier = "RESEARCHER"
	TierSenior     Tier = "SENIOR"
	TierArchitect  Tier = "ARCHITECT"
)

// tier thresholds on power, highest first
var tiers = []struct {
	tier   Tier
	power  float64
	weight int
}{
	{TierArchitect, 100, 10},
	{TierSenior, 50, 5},
	{TierResearcher, 10, 2},
}

// Rank is the derived standing of an agent; it is recomputed on every read and never stored
type Rank struct {
	AgentID       string  `json:"agentId"`
	Tier          Tier    `json:"tier"`
	VotingWeight  int     `json:"votingWeight"`
	Power         float64 `json:"power"`
	Contributions int     `json:"contributions"`
	TrustScore    float64 `json:"trustScore"`
	AvgOccam      float64 `json:"avgOccamContribution"`
	Banned        bool    `json:"banned,omitempty"`
}

// TrustScore() is the trust an agent earned from validating plus its τ-normalized reputation, capped.
// Reputation lives in [0,1] and contributes at most one point; a stored value outside that range is bounded
func TrustScore(config lib.ReputationConfig, a *lib.Agent) float64 {
	return min(config.MaxTrust, config.TrustPerValidation*float64(a.ValidationsDone)+unitInterval(a.Reputation))
}

// AvgOccamContribution() is the mean quality score of the agent's verified papers
func AvgOccamContribution(a *lib.Agent) float64 {
	if len(a.Credits) == 0 {
		return 0
	}
	scores := make([]float64, 0, len(a.Credits))
	for _, s := range a.Credits {
		scores = append(scores, s)
	}
	return stat.Mean(scores, nil)
}

// ComputeRank() derives the rank of an agent from its current attributes
func ComputeRank(config lib.ReputationConfig, a *lib.Agent) Rank {
	r := Rank{
		AgentID:       a.ID,
		Tier:          TierNewcomer,
		Contributions: a.Contributions,
		TrustScore:    TrustScore(config, a),
		AvgOccam:      AvgOccamContribution(a),
		Banned:        a.Banned,
	}
	r.Power = float64(a.Contributions) + 2*r.TrustScore + 10*r.AvgOccam
	// a verifiable identity is worth a multiplier
	if config.IdentityMultiplier > 0 && crypto.ValidIdentityKey(a.IdentityKey) {
		r.Power *= config.IdentityMultiplier
	}
	for _, t := range tiers {
		if r.Power >= t.power {
			r.Tier, r.VotingWeight = t.tier, t.weight
			break
		}
	}
	if r.Tier == TierNewcomer && a.Contributions >= 1 {
		r.Tier, r.VotingWeight = TierResearcher, 1
	}
	// banned agents keep their tier but lose their vote
	if a.Banned {
		r.VotingWeight = 0
	}
	return r
}
