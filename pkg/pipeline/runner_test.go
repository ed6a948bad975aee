package pipeline

import (
	"context"
	"math"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/mkruijt/linkmap/pkg/cache"
	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

func pipelineData(n int) *linkage.Dataset {
	d := &linkage.Dataset{NIndividuals: 1}
	for i := 0; i < n; i++ {
		d.Markers = append(d.Markers, linkage.Marker{
			Name: string(rune('a' + i%26)), Seg: linkage.SegA, Genos: []int{1},
		})
	}
	return d
}

// neighborEstimator favors orders that keep consecutive marker indices
// adjacent; the identity order scores best.
func neighborEstimator(calls *atomic.Int64) linkage.Estimator {
	return linkage.EstimatorFunc(func(_ context.Context, _ *linkage.Dataset, req linkage.EstimateRequest) (linkage.EstimateResult, error) {
		if calls != nil {
			calls.Add(1)
		}
		ll := 0.0
		for i := 1; i < len(req.Order); i++ {
			ll -= math.Abs(float64(req.Order[i] - req.Order[i-1]))
		}
		rf := make([]float64, len(req.Order)-1)
		for i := range rf {
			rf[i] = 0.1
		}
		return linkage.EstimateResult{RF: rf, LogLik: ll, Converged: true}, nil
	})
}

func TestExecuteSingleBatch(t *testing.T) {
	r := NewRunner(neighborEstimator(nil), nil, nil, nil)
	res, err := r.Execute(context.Background(), pipelineData(8), linkage.NewMemTable(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.Batches != 1 {
		t.Errorf("Batches = %d, want 1 for a short group", res.Stats.Batches)
	}
	if !slices.Equal(res.Map.Markers, []int{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Errorf("order = %v", res.Map.Markers)
	}
	if res.Summary.Markers != 8 {
		t.Errorf("Summary.Markers = %d", res.Summary.Markers)
	}
	if res.DatasetHash == "" {
		t.Error("DatasetHash should be set")
	}
	if len(res.Map.CumDist) != 8 {
		t.Fatalf("CumDist has %d entries", len(res.Map.CumDist))
	}
	for i := 1; i < len(res.Map.CumDist); i++ {
		if res.Map.CumDist[i] < res.Map.CumDist[i-1] {
			t.Errorf("cumulative distance decreases at %d", i)
		}
	}
}

func TestExecutePartitionsLongGroups(t *testing.T) {
	r := NewRunner(neighborEstimator(nil), nil, nil, nil)
	res, err := r.Execute(context.Background(), pipelineData(90), linkage.NewMemTable(), Options{
		BatchSize:    30,
		BatchOverlap: 10,
		SizeWindow:   5,
		Parallel:     2,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.Batches < 2 {
		t.Errorf("Batches = %d, want at least 2", res.Stats.Batches)
	}
	want := make([]int, 90)
	for i := range want {
		want[i] = i
	}
	if !slices.Equal(res.Map.Markers, want) {
		t.Errorf("stitched order is not 0..89: %v", res.Map.Markers[:10])
	}
	if len(res.Map.RF) != 89 || len(res.Map.Phases) != 89 {
		t.Errorf("interval vectors have lengths %d/%d", len(res.Map.RF), len(res.Map.Phases))
	}
}

func TestExecuteWithRipple(t *testing.T) {
	// A locally swapped explicit order must be repaired by refinement.
	order := []int{0, 1, 3, 2, 4, 5}
	r := NewRunner(neighborEstimator(nil), nil, nil, nil)
	res, err := r.Execute(context.Background(), pipelineData(6), linkage.NewMemTable(), Options{
		Order:        order,
		Ripple:       true,
		RippleWindow: 3,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !slices.Equal(res.Map.Markers, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("refined order = %v, want identity", res.Map.Markers)
	}
}

func TestExecuteReusesCachedEstimates(t *testing.T) {
	var calls atomic.Int64
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(neighborEstimator(&calls), store, nil, nil)
	data := pipelineData(10)

	if _, err := r.Execute(context.Background(), data, linkage.NewMemTable(), Options{}); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	first := calls.Load()
	if first == 0 {
		t.Fatal("estimator never called")
	}

	if _, err := r.Execute(context.Background(), data, linkage.NewMemTable(), Options{}); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if calls.Load() != first {
		t.Errorf("second run called the estimator %d more times, want 0", calls.Load()-first)
	}
}

func TestExecuteSeedsOrder(t *testing.T) {
	// The two-point table describes a chain; a shuffled dataset order must
	// not survive seeding.
	n := 8
	tab := linkage.NewMemTable()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			tab.Put(i, j, []linkage.PhaseCandidate{{
				Phase: linkage.PhaseCC,
				RF:    math.Min(0.45, 0.05*float64(j-i)),
				LOD:   10 / float64(j-i),
			}})
		}
	}

	r := NewRunner(neighborEstimator(nil), nil, nil, nil)
	res, err := r.Execute(context.Background(), pipelineData(n), tab, Options{Seed: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := slices.Clone(res.Map.Markers)
	if got[0] > got[len(got)-1] {
		slices.Reverse(got)
	}
	if !slices.Equal(got, []int{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Errorf("seeded order = %v, want the chain in either direction", res.Map.Markers)
	}
}

func TestExecuteValidation(t *testing.T) {
	r := NewRunner(neighborEstimator(nil), nil, nil, nil)

	_, err := r.Execute(context.Background(), &linkage.Dataset{}, nil, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidDataset) {
		t.Errorf("empty dataset: err = %v, want INVALID_DATASET", err)
	}

	_, err = r.Execute(context.Background(), pipelineData(5), nil, Options{Order: []int{0, 9}})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad order: err = %v, want INVALID_INPUT", err)
	}

	_, err = r.Execute(context.Background(), pipelineData(5), nil, Options{BatchSize: -1})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad options: err = %v, want INVALID_INPUT", err)
	}
}
