package linkage

import (
	"fmt"
	"math"
)

// MapFunc converts a recombination fraction into a genetic distance in
// centimorgans. The two standard choices differ in how much crossover
// interference they assume.
type MapFunc int8

const (
	// Kosambi assumes partial interference; the field's usual default.
	Kosambi MapFunc = iota
	// Haldane assumes no interference (Poisson crossovers).
	Haldane
)

// ParseMapFunc converts a config string into a MapFunc.
func ParseMapFunc(s string) (MapFunc, error) {
	switch s {
	case "", "kosambi":
		return Kosambi, nil
	case "haldane":
		return Haldane, nil
	}
	return Kosambi, fmt.Errorf("unknown map function %q (want kosambi or haldane)", s)
}

// String returns the lowercase function name.
func (f MapFunc) String() string {
	if f == Haldane {
		return "haldane"
	}
	return "kosambi"
}

// Distance converts recombination fraction r into centimorgans.
// Fractions are clamped to [0, 0.4999] first: r = 0.5 means no linkage
// and would map to an infinite distance.
func (f MapFunc) Distance(r float64) float64 {
	if math.IsNaN(r) {
		return math.NaN()
	}
	if r < 0 {
		r = 0
	}
	if r > 0.4999 {
		r = 0.4999
	}
	switch f {
	case Haldane:
		return -50 * math.Log(1-2*r)
	default: // Kosambi
		return 25 * math.Log((1+2*r)/(1-2*r))
	}
}

// Cumulative returns the running genetic distance for a vector of
// interval recombination fractions: position 0 is 0, position i is the
// sum of the first i interval distances. The result has len(rf)+1
// entries and is non-decreasing.
func (f MapFunc) Cumulative(rf []float64) []float64 {
	out := make([]float64, len(rf)+1)
	for i, r := range rf {
		d := f.Distance(r)
		if math.IsNaN(d) {
			d = 0
		}
		out[i+1] = out[i] + d
	}
	return out
}
