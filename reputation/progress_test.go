package reputation

import (
	"math"
	"testing"

	"github.com/p2pclaw/hive/lib"
	"github.com/stretchr/testify/require"
)

func TestKappa(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		report   Report
		expected float64
	}{
		{
			name:     "idle",
			detail:   "no work means no progress",
			report:   Report{},
			expected: 0,
		},
		{
			name:     "mixed",
			detail:   "0.3*0.5 + 0.5*1 + 0.2*0.5",
			report:   Report{TPS: 50, WorkQuality: 1, InfoGain: 0.5},
			expected: 0.75,
		},
		{
			name:     "saturated throughput",
			detail:   "throughput above the maximum counts as the maximum",
			report:   Report{TPS: 1_000},
			expected: 0.3,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.InDelta(t, test.expected, Kappa(lib.DefaultReputationConfig(), test.report), 1e-9)
		})
	}
}

func TestReportCheck(t *testing.T) {
	require.NoError(t, Report{TPS: 10, WorkQuality: 1, InfoGain: 0, Quality: 0.5}.Check())
	require.Error(t, Report{TPS: -1}.Check())
	require.Error(t, Report{WorkQuality: 1.5}.Check())
	require.Error(t, Report{InfoGain: math.NaN()}.Check())
	require.Error(t, Report{Quality: -0.1}.Check())
}

func TestAdvance(t *testing.T) {
	config := lib.DefaultReputationConfig()
	active := Report{TPS: 50, WorkQuality: 1, InfoGain: 0.5, Quality: 0.75}
	tests := []struct {
		name     string
		detail   string
		prev     Progress
		report   Report
		now      int64
		expected Progress
	}{
		{
			name:     "first update",
			detail:   "the first report only starts the clock",
			prev:     Progress{},
			report:   active,
			now:      1_000,
			expected: Progress{Kappa: 0.75, At: 1_000},
		},
		{
			name:     "ten seconds",
			detail:   "dTau = 0.75*10; r = 0.05*(0.75/7.5)",
			prev:     Progress{At: 1_000},
			report:   active,
			now:      11_000,
			expected: Progress{Tau: 7.5, Kappa: 0.75, Reputation: 0.005, At: 11_000},
		},
		{
			name:     "sliver of progress",
			detail:   "quality over a tiny dTau saturates at 1: r = 0.95*0.2 + 0.05*1",
			prev:     Progress{Tau: 3, Reputation: 0.2, At: 1_000},
			report:   Report{TPS: 0.01, Quality: 1},
			now:      2_000,
			expected: Progress{Tau: 3.00003, Kappa: 0.00003, Reputation: 0.24, At: 2_000},
		},
		{
			name:     "idle",
			detail:   "an idle interval adds no progress and leaves reputation alone",
			prev:     Progress{Tau: 3, Kappa: 0.5, Reputation: 0.2, At: 1_000},
			report:   Report{},
			now:      604_801_000,
			expected: Progress{Tau: 3, Kappa: 0, Reputation: 0.2, At: 604_801_000},
		},
		{
			name:     "clock skew",
			detail:   "a timestamp in the past never decreases tau",
			prev:     Progress{Tau: 3, Reputation: 0.2, At: 5_000},
			report:   active,
			now:      1_000,
			expected: Progress{Tau: 3, Kappa: 0.75, Reputation: 0.2, At: 5_000},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// execute the function call
			got := Advance(config, test.prev, test.report, test.now)
			// compare got vs expected
			require.InDelta(t, test.expected.Tau, got.Tau, 1e-9)
			require.InDelta(t, test.expected.Kappa, got.Kappa, 1e-9)
			require.InDelta(t, test.expected.Reputation, got.Reputation, 1e-9)
			require.Equal(t, test.expected.At, got.At)
		})
	}
}

func TestIdleAgentDoesNotOutpaceProductiveAgent(t *testing.T) {
	config := lib.DefaultReputationConfig()
	const day, week = int64(86_400_000), int64(7 * 86_400_000)
	// the idle agent has been present for a week without work
	idle := Advance(config, Progress{}, Report{}, 1)
	idle = Advance(config, idle, Report{}, week)
	// the productive agent worked steadily for a day
	busy := Advance(config, Progress{}, Report{WorkQuality: 0.8, Quality: 0.8}, 1)
	for ts := int64(3_600_000); ts <= day; ts += 3_600_000 {
		busy = Advance(config, busy, Report{WorkQuality: 0.8, Quality: 0.8}, ts)
	}
	// compare got vs expected
	require.Zero(t, idle.Tau)
	require.Greater(t, busy.Tau, idle.Tau)
	require.Greater(t, busy.Reputation, idle.Reputation)
}
