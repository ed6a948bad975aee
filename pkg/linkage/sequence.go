package linkage

import (
	"math"
	"slices"

	"github.com/mkruijt/linkmap/pkg/errors"
)

// RFUnknown is the sentinel recombination fraction for intervals that have
// not been estimated yet.
var RFUnknown = math.NaN()

// Sequence is an ordered run of markers together with the per-interval
// linkage phases and recombination fractions, and the log-likelihood of
// the full multipoint fit once one has run.
//
// For a sequence of n >= 2 markers, Phases and RF either both have length
// n-1 (one entry per adjacent pair) or both have length 1 holding the
// Unknown/NaN sentinels, which is the "not yet phased" representation for
// the whole sequence.
//
// Sequences reference the dataset and two-point table they were built
// from; they never copy them. Treat a Sequence as immutable: the search
// algorithms return fresh values instead of mutating their inputs.
type Sequence struct {
	Markers []int
	Phases  []Phase
	RF      []float64

	// LogLik is NaN until a full multipoint fit has run.
	LogLik float64

	Data     *Dataset
	TwoPoint TwoPointTable
}

// NewSequence returns an unphased sequence over the given marker order.
// The order is cloned; data and tp are referenced.
func NewSequence(order []int, data *Dataset, tp TwoPointTable) *Sequence {
	return &Sequence{
		Markers:  slices.Clone(order),
		Phases:   []Phase{PhaseUnknown},
		RF:       []float64{RFUnknown},
		LogLik:   math.NaN(),
		Data:     data,
		TwoPoint: tp,
	}
}

// Validate checks the structural invariants from the data model: at least
// two markers, and phase/RF vectors that are either both the length-1
// sentinel form or both of length len(Markers)-1.
func (s *Sequence) Validate() error {
	if s == nil || len(s.Markers) < 2 {
		return errors.New(errors.ErrCodeInvalidSequence,
			"sequence needs at least 2 markers, got %d", s.markerCount())
	}
	if len(s.Phases) != len(s.RF) {
		return errors.New(errors.ErrCodeInvalidSequence,
			"phase vector (%d) and rf vector (%d) lengths differ",
			len(s.Phases), len(s.RF))
	}
	if len(s.Phases) != 1 && len(s.Phases) != len(s.Markers)-1 {
		return errors.New(errors.ErrCodeInvalidSequence,
			"%d markers need %d phases, got %d",
			len(s.Markers), len(s.Markers)-1, len(s.Phases))
	}
	for _, p := range s.Phases {
		if !p.Valid() {
			return errors.New(errors.ErrCodeInvalidSequence, "invalid phase code %d", p)
		}
	}
	return nil
}

func (s *Sequence) markerCount() int {
	if s == nil {
		return 0
	}
	return len(s.Markers)
}

// Phased reports whether the sequence carries one resolved phase per
// interval (the expanded form rather than the length-1 sentinel).
func (s *Sequence) Phased() bool {
	return len(s.Markers) >= 2 && len(s.Phases) == len(s.Markers)-1
}

// Estimated reports whether a full multipoint fit has produced a
// log-likelihood for this sequence.
func (s *Sequence) Estimated() bool {
	return !math.IsNaN(s.LogLik)
}

// Clone returns a deep copy of the marker, phase, and RF vectors. Dataset
// and two-point references are shared.
func (s *Sequence) Clone() *Sequence {
	return &Sequence{
		Markers:  slices.Clone(s.Markers),
		Phases:   slices.Clone(s.Phases),
		RF:       slices.Clone(s.RF),
		LogLik:   s.LogLik,
		Data:     s.Data,
		TwoPoint: s.TwoPoint,
	}
}

// Slice returns an unphased sub-sequence over Markers[start:end).
func (s *Sequence) Slice(start, end int) *Sequence {
	return NewSequence(s.Markers[start:end], s.Data, s.TwoPoint)
}

// WithOrder returns an unphased sequence over the given order, keeping
// this sequence's dataset and two-point references.
func (s *Sequence) WithOrder(order []int) *Sequence {
	return NewSequence(order, s.Data, s.TwoPoint)
}

// Reverse returns the sequence read in the opposite direction: markers
// and interval vectors reversed, mixed phases (CR/RC) swapped, and the
// log-likelihood carried over unchanged (a reversed order has the same
// multipoint likelihood).
func (s *Sequence) Reverse() *Sequence {
	r := s.Clone()
	slices.Reverse(r.Markers)
	if r.Phased() {
		slices.Reverse(r.Phases)
		slices.Reverse(r.RF)
		for i, p := range r.Phases {
			r.Phases[i] = p.Reversed()
		}
	}
	return r
}
