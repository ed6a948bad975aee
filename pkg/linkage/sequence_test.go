package linkage

import (
	"math"
	"slices"
	"testing"

	"github.com/mkruijt/linkmap/pkg/errors"
)

func testData(n int) *Dataset {
	d := &Dataset{NIndividuals: 2}
	for i := 0; i < n; i++ {
		d.Markers = append(d.Markers, Marker{
			Name: string(rune('a' + i%26)), Seg: SegA, Genos: []int{1, 2},
		})
	}
	return d
}

func TestNewSequenceStartsUnphased(t *testing.T) {
	order := []int{2, 0, 1}
	s := NewSequence(order, testData(3), nil)

	if s.Phased() {
		t.Error("new sequence should not be phased")
	}
	if s.Estimated() {
		t.Error("new sequence should not be estimated")
	}
	if len(s.Phases) != 1 || s.Phases[0] != PhaseUnknown {
		t.Errorf("Phases = %v, want the length-1 Unknown sentinel", s.Phases)
	}
	if len(s.RF) != 1 || !math.IsNaN(s.RF[0]) {
		t.Errorf("RF = %v, want the length-1 NaN sentinel", s.RF)
	}

	order[0] = 99
	if s.Markers[0] == 99 {
		t.Error("NewSequence aliased the caller's order slice")
	}
}

func TestSequenceValidate(t *testing.T) {
	d := testData(4)

	if err := NewSequence([]int{0, 1, 2}, d, nil).Validate(); err != nil {
		t.Errorf("valid sentinel sequence: %v", err)
	}

	full := NewSequence([]int{0, 1, 2}, d, nil)
	full.Phases = []Phase{PhaseCC, PhaseRR}
	full.RF = []float64{0.1, 0.2}
	if err := full.Validate(); err != nil {
		t.Errorf("valid expanded sequence: %v", err)
	}

	cases := []struct {
		name string
		mod  func(*Sequence)
	}{
		{"single marker", func(s *Sequence) { s.Markers = s.Markers[:1] }},
		{"length mismatch", func(s *Sequence) { s.RF = []float64{0.1, 0.2} }},
		{"wrong interval count", func(s *Sequence) {
			s.Phases = []Phase{PhaseCC, PhaseCC}
			s.RF = []float64{0.1, 0.1}
		}},
		{"invalid phase code", func(s *Sequence) { s.Phases = []Phase{Phase(9)} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSequence([]int{0, 1, 2, 3}, d, nil)
			tc.mod(s)
			if !errors.Is(s.Validate(), errors.ErrCodeInvalidSequence) {
				t.Errorf("err = %v, want INVALID_SEQUENCE", s.Validate())
			}
		})
	}
}

func TestSequenceCloneIsDeep(t *testing.T) {
	s := NewSequence([]int{0, 1, 2}, testData(3), nil)
	s.Phases = []Phase{PhaseCC, PhaseCR}
	s.RF = []float64{0.1, 0.2}
	s.LogLik = -3

	c := s.Clone()
	c.Markers[0] = 9
	c.Phases[0] = PhaseRR
	c.RF[0] = 0.4

	if s.Markers[0] != 0 || s.Phases[0] != PhaseCC || s.RF[0] != 0.1 {
		t.Error("mutating the clone changed the original")
	}
	if c.Data != s.Data {
		t.Error("clone should share the dataset reference")
	}
}

func TestSequenceReverse(t *testing.T) {
	s := NewSequence([]int{0, 1, 2, 3}, testData(4), nil)
	s.Phases = []Phase{PhaseCC, PhaseCR, PhaseRC}
	s.RF = []float64{0.1, 0.2, 0.3}
	s.LogLik = -7

	r := s.Reverse()
	if !slices.Equal(r.Markers, []int{3, 2, 1, 0}) {
		t.Errorf("markers = %v", r.Markers)
	}
	// Mixed phases swap when the reading direction flips.
	want := []Phase{PhaseCR, PhaseRC, PhaseCC}
	if !slices.Equal(r.Phases, want) {
		t.Errorf("phases = %v, want %v", r.Phases, want)
	}
	if !slices.Equal(r.RF, []float64{0.3, 0.2, 0.1}) {
		t.Errorf("rf = %v", r.RF)
	}
	if r.LogLik != -7 {
		t.Errorf("LogLik = %v, want carried over", r.LogLik)
	}

	rr := r.Reverse()
	if !slices.Equal(rr.Markers, s.Markers) || !slices.Equal(rr.Phases, s.Phases) {
		t.Error("double reversal should restore the original")
	}
}

func TestSequenceSliceAndWithOrder(t *testing.T) {
	s := NewSequence([]int{0, 1, 2, 3, 4}, testData(5), nil)
	s.Phases = []Phase{PhaseCC, PhaseCC, PhaseCC, PhaseCC}
	s.RF = []float64{0.1, 0.1, 0.1, 0.1}

	sub := s.Slice(1, 4)
	if !slices.Equal(sub.Markers, []int{1, 2, 3}) {
		t.Errorf("slice markers = %v", sub.Markers)
	}
	if sub.Phased() {
		t.Error("slice should come back unphased")
	}
	if sub.Data != s.Data {
		t.Error("slice should share the dataset")
	}

	re := s.WithOrder([]int{4, 3, 2, 1, 0})
	if re.Phased() || re.Estimated() {
		t.Error("reordered sequence should be unphased and unestimated")
	}
}

func TestPhaseReversed(t *testing.T) {
	pairs := map[Phase]Phase{
		PhaseCC:      PhaseCC,
		PhaseCR:      PhaseRC,
		PhaseRC:      PhaseCR,
		PhaseRR:      PhaseRR,
		PhaseUnknown: PhaseUnknown,
	}
	for p, want := range pairs {
		if got := p.Reversed(); got != want {
			t.Errorf("%v.Reversed() = %v, want %v", p, got, want)
		}
	}
}
