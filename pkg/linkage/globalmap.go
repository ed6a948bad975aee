package linkage

import (
	"math"

	"github.com/montanaflynn/stats"
)

// GlobalMap is the terminal artifact of map construction: one ordered
// marker list with phases, recombination fractions, cumulative genetic
// distance per marker, and the total log-likelihood. It owns its data;
// the batch sub-maps it was stitched from are transient.
type GlobalMap struct {
	Markers []int
	Names   []string
	Phases  []Phase
	RF      []float64
	// CumDist has one entry per marker (len(Markers)); entry 0 is 0 and
	// the vector is non-decreasing.
	CumDist []float64
	// LogLik is the summed log-likelihood of the independently fitted
	// batches. It is an approximation, not a joint multipoint
	// likelihood; see the batch package docs.
	LogLik float64
	// Warnings collects the non-fatal conditions raised while building.
	Warnings []Warning
}

// FromSequence converts a fully estimated sequence into a GlobalMap,
// computing cumulative distances with the given map function.
func FromSequence(s *Sequence, f MapFunc) *GlobalMap {
	m := &GlobalMap{
		Markers: s.Markers,
		Phases:  s.Phases,
		RF:      s.RF,
		CumDist: f.Cumulative(s.RF),
		LogLik:  s.LogLik,
	}
	if s.Data != nil {
		m.Names = make([]string, len(s.Markers))
		for i, idx := range s.Markers {
			m.Names[i] = s.Data.MarkerName(idx)
		}
	}
	return m
}

// Length returns the total map length in centimorgans.
func (m *GlobalMap) Length() float64 {
	if len(m.CumDist) == 0 {
		return 0
	}
	return m.CumDist[len(m.CumDist)-1]
}

// Summary holds descriptive statistics of a finished map, reported by the
// CLI and stored alongside sessions.
type Summary struct {
	Markers        int     `json:"markers"`
	LengthCM       float64 `json:"length_cm"`
	MeanIntervalCM float64 `json:"mean_interval_cm"`
	MaxIntervalCM  float64 `json:"max_interval_cm"`
	MedianRF       float64 `json:"median_rf"`
	LogLik         float64 `json:"log_lik"`
	Warnings       int     `json:"warnings"`
}

// Summarize computes descriptive statistics for the map using mapf for
// interval distances. Intervals with unknown recombination fractions are
// skipped.
func (m *GlobalMap) Summarize(mapf MapFunc) Summary {
	s := Summary{
		Markers:  len(m.Markers),
		LengthCM: m.Length(),
		LogLik:   m.LogLik,
		Warnings: len(m.Warnings),
	}
	var dists, rfs []float64
	for _, r := range m.RF {
		if math.IsNaN(r) {
			continue
		}
		dists = append(dists, mapf.Distance(r))
		rfs = append(rfs, r)
	}
	if len(dists) == 0 {
		return s
	}
	// The stats helpers only fail on empty input, which is excluded above.
	s.MeanIntervalCM, _ = stats.Mean(dists)
	s.MaxIntervalCM, _ = stats.Max(dists)
	s.MedianRF, _ = stats.Median(rfs)
	return s
}
