package batch

import (
	"context"
	"slices"
	"testing"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

func mergeData(n int) *linkage.Dataset {
	d := &linkage.Dataset{NIndividuals: 1}
	for i := 0; i < n; i++ {
		d.Markers = append(d.Markers, linkage.Marker{
			Name: string(rune('A' + i%26)), Seg: linkage.SegA, Genos: []int{1},
		})
	}
	return d
}

// identityMapper resolves every interval to CC with rf 0.1 and a fixed
// likelihood, keeping the incoming order.
func identityMapper(logLik float64) Mapper {
	return func(_ context.Context, seq *linkage.Sequence) (*linkage.Sequence, []linkage.Warning, error) {
		out := seq.Clone()
		out.Phases = make([]linkage.Phase, len(out.Markers)-1)
		out.RF = make([]float64, len(out.Markers)-1)
		for i := range out.Phases {
			out.Phases[i] = linkage.PhaseCC
			out.RF[i] = 0.1
		}
		out.LogLik = logLik
		return out, nil, nil
	}
}

func TestMapBatchesStitchesInOrder(t *testing.T) {
	seq := linkage.NewSequence(seqInts(10), mergeData(10), nil)
	batches := []Batch{
		{Start: 0, End: 6, Overlap: 0},
		{Start: 3, End: 10, Overlap: 3},
	}

	m, err := MapBatches(context.Background(), seq, batches, identityMapper(-10), MergeOptions{Parallel: 2})
	if err != nil {
		t.Fatalf("MapBatches: %v", err)
	}
	if !slices.Equal(m.Markers, seqInts(10)) {
		t.Errorf("stitched order = %v, want 0..9", m.Markers)
	}
	if len(m.Phases) != 9 || len(m.RF) != 9 {
		t.Errorf("interval vectors have lengths %d/%d, want 9/9", len(m.Phases), len(m.RF))
	}
	if m.LogLik != -20 {
		t.Errorf("LogLik = %v, want summed -20", m.LogLik)
	}
	if len(m.CumDist) != 10 {
		t.Fatalf("CumDist has %d entries, want 10", len(m.CumDist))
	}
	for i := 1; i < len(m.CumDist); i++ {
		if m.CumDist[i] < m.CumDist[i-1] {
			t.Errorf("cumulative distance decreases at %d: %v", i, m.CumDist)
		}
	}
}

func TestMapBatchesDetectsReversedBatch(t *testing.T) {
	seq := linkage.NewSequence(seqInts(10), mergeData(10), nil)
	batches := []Batch{
		{Start: 0, End: 6, Overlap: 0},
		{Start: 3, End: 10, Overlap: 3},
	}

	// The second batch comes back reversed, as can happen when windows
	// are ordered independently.
	reversing := func(ctx context.Context, s *linkage.Sequence) (*linkage.Sequence, []linkage.Warning, error) {
		out, warns, err := identityMapper(-5)(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		if out.Markers[0] == 3 {
			out = out.Reverse()
		}
		return out, warns, nil
	}

	m, err := MapBatches(context.Background(), seq, batches, reversing, MergeOptions{})
	if err != nil {
		t.Fatalf("MapBatches: %v", err)
	}
	if !slices.Equal(m.Markers, seqInts(10)) {
		t.Errorf("stitched order = %v, want 0..9 after re-orientation", m.Markers)
	}
	for i := 1; i < len(m.CumDist); i++ {
		if m.CumDist[i] < m.CumDist[i-1] {
			t.Errorf("cumulative distance decreases at %d", i)
		}
	}
}

func TestMapBatchesReversalSwapsMixedPhases(t *testing.T) {
	// A reversed batch must come back with CR and RC exchanged.
	s := linkage.NewSequence([]int{0, 1, 2}, mergeData(3), nil)
	s.Phases = []linkage.Phase{linkage.PhaseCR, linkage.PhaseCC}
	s.RF = []float64{0.1, 0.2}
	s.LogLik = -1

	r := s.Reverse()
	want := []linkage.Phase{linkage.PhaseCC, linkage.PhaseRC}
	if !slices.Equal(r.Phases, want) {
		t.Errorf("reversed phases = %v, want %v", r.Phases, want)
	}
	if !slices.Equal(r.Markers, []int{2, 1, 0}) {
		t.Errorf("reversed markers = %v", r.Markers)
	}
	if r.RF[0] != 0.2 || r.RF[1] != 0.1 {
		t.Errorf("reversed rf = %v", r.RF)
	}
}

func TestMapBatchesMergeConflict(t *testing.T) {
	seq := linkage.NewSequence(seqInts(10), mergeData(10), nil)
	batches := []Batch{
		{Start: 0, End: 6, Overlap: 0},
		{Start: 3, End: 10, Overlap: 3},
	}

	// The second batch shuffles its overlap so neither orientation can
	// line up with the first batch's tail.
	conflicting := func(ctx context.Context, s *linkage.Sequence) (*linkage.Sequence, []linkage.Warning, error) {
		out, warns, err := identityMapper(-5)(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		if out.Markers[0] == 3 {
			out.Markers[0], out.Markers[1] = out.Markers[1], out.Markers[0]
		}
		return out, warns, nil
	}

	_, err := MapBatches(context.Background(), seq, batches, conflicting, MergeOptions{})
	if !errors.Is(err, errors.ErrCodeMergeConflict) {
		t.Fatalf("err = %v, want MERGE_CONFLICT", err)
	}
}

func TestMapBatchesValidatesInput(t *testing.T) {
	seq := linkage.NewSequence(seqInts(10), mergeData(10), nil)

	_, err := MapBatches(context.Background(), seq, nil, identityMapper(0), MergeOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("no batches: err = %v, want INVALID_INPUT", err)
	}

	bad := []Batch{{Start: 0, End: 20, Overlap: 0}}
	_, err = MapBatches(context.Background(), seq, bad, identityMapper(0), MergeOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("out-of-range batch: err = %v, want INVALID_INPUT", err)
	}

	// A declared overlap longer than the previous batch cannot be matched
	// against the accumulated map and must be rejected up front.
	wide := []Batch{
		{Start: 0, End: 2, Overlap: 0},
		{Start: 0, End: 5, Overlap: 4},
	}
	_, err = MapBatches(context.Background(), seq, wide, identityMapper(0), MergeOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("oversized overlap: err = %v, want INVALID_INPUT", err)
	}
}

func seqInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
