package reputation

import (
	"math"

	"github.com/p2pclaw/hive/lib"
)

/*
	τ/κ progress normalization.

	κ is the instantaneous progress rate, a weighted mix of throughput, validated work and information gain. τ is κ
	integrated over wall clock time. Reputation decays toward the quality of the interval divided by the progress
	made in it, so an agent that sat idle for a week gains no τ and cannot out-accumulate an agent that was
	productive for a day.
*/

// Report is the work an agent observed over one interval
type Report struct {
	TPS         float64 `json:"tps"`         // throughput
	WorkQuality float64 `json:"workQuality"` // validated work units in [0,1]
	InfoGain    float64 `json:"infoGain"`    // information gain in [0,1]
	Quality     float64 `json:"quality"`     // quality signal of the interval in [0,1]
}

// Progress is the τ/κ state of an agent
type Progress struct {
	Tau        float64 `json:"tau"`
	Kappa      float64 `json:"kappa"`
	Reputation float64 `json:"reputation"`
	At         int64   `json:"progressAt"` // unix ms of the last update
}

// Check() validates the ranges of a report
func (r Report) Check() lib.ErrorI {
	switch {
	case r.TPS < 0 || math.IsNaN(r.TPS) || math.IsInf(r.TPS, 0):
		return ErrInvalidProgress("tps", r.TPS)
	case !unit(r.WorkQuality):
		return ErrInvalidProgress("workQuality", r.WorkQuality)
	case !unit(r.InfoGain):
		return ErrInvalidProgress("infoGain", r.InfoGain)
	case !unit(r.Quality):
		return ErrInvalidProgress("quality", r.Quality)
	}
	return nil
}

// Empty() returns true if the report carries no work at all
func (r Report) Empty() bool { return r == Report{} }

// Kappa() returns the instantaneous progress rate of a report
func Kappa(config lib.ReputationConfig, r Report) float64 {
	throughput := 0.0
	if config.TPSMax > 0 {
		throughput = min(r.TPS/config.TPSMax, 1)
	}
	return config.Alpha*throughput + config.Beta*r.WorkQuality + config.Gamma*r.InfoGain
}

// Advance() integrates κ over the time elapsed since the last update; the first update only starts the clock
func Advance(config lib.ReputationConfig, p Progress, r Report, nowMS int64) Progress {
	next := Progress{Tau: p.Tau, Kappa: Kappa(config, r), Reputation: p.Reputation, At: nowMS}
	if p.At == 0 {
		return next
	}
	// a clock running backwards makes no progress
	dt := max(float64(nowMS-p.At)/1000, 0)
	dTau := next.Kappa * dt
	if dTau <= 0 {
		next.At = max(nowMS, p.At)
		return next
	}
	next.Tau += dTau
	// quality per unit of progress saturates at 1 so a sliver of progress cannot mint reputation
	next.Reputation = config.Lambda*unitInterval(p.Reputation) + (1-config.Lambda)*min(r.Quality/dTau, 1)
	return next
}

// unit() returns true for a finite value in [0,1]
func unit(v float64) bool { return v >= 0 && v <= 1 }

// unitInterval() bounds v to [0,1]; NaN counts as 0
func unitInterval(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
