package reputation

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/p2pclaw/hive/lib"
	"github.com/stretchr/testify/require"
)

func TestComputeRank(t *testing.T) {
	tests := []struct {
		name           string
		detail         string
		agent          *lib.Agent
		expectedTier   Tier
		expectedWeight int
	}{
		{
			name:           "newcomer",
			detail:         "an agent without contributions cannot vote",
			agent:          lib.NewAgent("a"),
			expectedTier:   TierNewcomer,
			expectedWeight: 0,
		},
		{
			name:           "first contribution",
			detail:         "a single verified paper earns a vote",
			agent:          &lib.Agent{ID: "a", Contributions: 1, Credits: credits(1, 0.8)},
			expectedTier:   TierResearcher,
			expectedWeight: 1,
		},
		{
			name:           "researcher",
			detail:         "power of at least 10",
			agent:          &lib.Agent{ID: "a", Contributions: 5, Credits: credits(5, 0.9)},
			expectedTier:   TierResearcher,
			expectedWeight: 2,
		},
		{
			name:           "senior",
			detail:         "power of at least 50",
			agent:          &lib.Agent{ID: "a", Contributions: 30, ValidationsDone: 100, Credits: credits(30, 0.5)},
			expectedTier:   TierSenior,
			expectedWeight: 5,
		},
		{
			name:           "architect",
			detail:         "power of at least 100",
			agent:          &lib.Agent{ID: "a", Contributions: 60, ValidationsDone: 200, Credits: credits(60, 0.8)},
			expectedTier:   TierArchitect,
			expectedWeight: 10,
		},
		{
			name:           "banned",
			detail:         "a banned agent keeps its tier but loses its vote",
			agent:          &lib.Agent{ID: "a", Contributions: 60, ValidationsDone: 200, Credits: credits(60, 0.8), Banned: true},
			expectedTier:   TierArchitect,
			expectedWeight: 0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// execute the function call
			got := ComputeRank(lib.DefaultReputationConfig(), test.agent)
			// compare got vs expected
			require.Equal(t, test.expectedTier, got.Tier)
			require.Equal(t, test.expectedWeight, got.VotingWeight)
			require.Equal(t, test.agent.Contributions, got.Contributions)
		})
	}
}

func TestComputeRankPower(t *testing.T) {
	// pre-define an agent with every input set
	a := &lib.Agent{ID: "a", Contributions: 3, ValidationsDone: 20, Reputation: 1, Credits: map[string]float64{"p1": 0.5, "p2": 0.7}}
	// execute the function call
	got := ComputeRank(lib.DefaultReputationConfig(), a)
	// power = 3 + 2*(0.1*20 + 1) + 10*0.6
	require.InDelta(t, 3.0, got.TrustScore, 1e-9)
	require.InDelta(t, 0.6, got.AvgOccam, 1e-9)
	require.InDelta(t, 15.0, got.Power, 1e-9)
}

func TestTrustScoreCapped(t *testing.T) {
	config := lib.DefaultReputationConfig()
	a := &lib.Agent{ID: "a", ValidationsDone: 10_000}
	require.Equal(t, config.MaxTrust, TrustScore(config, a))
}

func TestTrustScoreBoundsReputation(t *testing.T) {
	config := lib.DefaultReputationConfig()
	// a stored reputation outside [0,1] contributes at most one point
	inflated := &lib.Agent{ID: "a", Reputation: 1_666.7}
	require.Equal(t, 1.0, TrustScore(config, inflated))
	require.Zero(t, ComputeRank(config, inflated).VotingWeight)
	require.Zero(t, TrustScore(config, &lib.Agent{ID: "a", Reputation: -5}))
}

func TestComputeRankIdentityMultiplier(t *testing.T) {
	// generate a real identity key
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	// pre-define the same agent with and without the key
	without := &lib.Agent{ID: "a", Contributions: 4, Credits: credits(4, 0.4)}
	with := &lib.Agent{ID: "a", Contributions: 4, Credits: credits(4, 0.4), IdentityKey: hex.EncodeToString(pub)}
	invalid := &lib.Agent{ID: "a", Contributions: 4, Credits: credits(4, 0.4), IdentityKey: "not-a-key"}
	config := lib.DefaultReputationConfig()
	// compare got vs expected
	require.InDelta(t, 8.0, ComputeRank(config, without).Power, 1e-9)
	require.InDelta(t, 12.0, ComputeRank(config, with).Power, 1e-9)
	require.Equal(t, 2, ComputeRank(config, with).VotingWeight)
	require.Equal(t, 1, ComputeRank(config, invalid).VotingWeight)
}

func TestComputeRankMonotonicInContributions(t *testing.T) {
	order := map[Tier]int{TierNewcomer: 0, TierResearcher: 1, TierSenior: 2, TierArchitect: 3}
	config := lib.DefaultReputationConfig()
	// hold every other input fixed
	fixed := credits(3, 0.6)
	prevTier, prevWeight := -1, -1
	for c := 0; c <= 250; c++ {
		got := ComputeRank(config, &lib.Agent{ID: "a", Contributions: c, ValidationsDone: 7, Credits: fixed})
		require.GreaterOrEqual(t, order[got.Tier], prevTier, "contributions=%d", c)
		require.GreaterOrEqual(t, got.VotingWeight, prevWeight, "contributions=%d", c)
		prevTier, prevWeight = order[got.Tier], got.VotingWeight
	}
}

// credits() builds n credited papers with the same score
func credits(n int, score float64) map[string]float64 {
	out := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		out[fmt.Sprintf("p%d", i)] = score
	}
	return out
}
