package hmm

import (
	"context"
	"math"
	"testing"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

// pairData builds a 2-marker fully informative dataset where each
// individual's genotype classes encode its inheritance states directly.
// states holds (locus1 state, locus2 state) per individual, 0..3.
func pairData(states [][2]int) *linkage.Dataset {
	n := len(states)
	m1 := linkage.Marker{Name: "m1", Seg: linkage.SegA, Genos: make([]int, n)}
	m2 := linkage.Marker{Name: "m2", Seg: linkage.SegA, Genos: make([]int, n)}
	for i, s := range states {
		m1.Genos[i] = s[0] + 1
		m2.Genos[i] = s[1] + 1
	}
	return &linkage.Dataset{Markers: []linkage.Marker{m1, m2}, NIndividuals: n}
}

func TestEstimateRecoversRecombinationFraction(t *testing.T) {
	// 20 individuals, 4 of them with a single parent-1 recombination:
	// 4 switches over 40 meioses, so rf = 0.1.
	var states [][2]int
	for i := 0; i < 16; i++ {
		states = append(states, [2]int{i % 4, i % 4})
	}
	for i := 0; i < 4; i++ {
		states = append(states, [2]int{0, 2})
	}

	est := &Estimator{}
	res, err := est.Estimate(context.Background(), pairData(states), linkage.EstimateRequest{
		Order:  []int{0, 1},
		Phases: []linkage.Phase{linkage.PhaseCC},
		Tol:    1e-6,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !res.Converged {
		t.Error("expected convergence on fully informative data")
	}
	if len(res.RF) != 1 {
		t.Fatalf("got %d rf values, want 1", len(res.RF))
	}
	if math.Abs(res.RF[0]-0.1) > 1e-3 {
		t.Errorf("rf = %v, want 0.1", res.RF[0])
	}
	if math.IsNaN(res.LogLik) || math.IsInf(res.LogLik, 0) || res.LogLik >= 0 {
		t.Errorf("LogLik = %v, want finite negative", res.LogLik)
	}
}

func TestEstimateRepulsionPhaseMatchesFlippedData(t *testing.T) {
	// Under parent-1 repulsion the homolog labels of the second locus are
	// exchanged, so flipping the parent-1 component of every locus-2
	// state and declaring RC must reproduce the coupling estimate.
	var coupling, repulsion [][2]int
	for i := 0; i < 18; i++ {
		coupling = append(coupling, [2]int{i % 4, i % 4})
		repulsion = append(repulsion, [2]int{i % 4, (i % 4) ^ 2})
	}
	coupling = append(coupling, [2]int{1, 3}, [2]int{2, 0})
	repulsion = append(repulsion, [2]int{1, 1}, [2]int{2, 2})

	est := &Estimator{}
	cc, err := est.Estimate(context.Background(), pairData(coupling), linkage.EstimateRequest{
		Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseCC}, Tol: 1e-6,
	})
	if err != nil {
		t.Fatalf("coupling: %v", err)
	}
	rc, err := est.Estimate(context.Background(), pairData(repulsion), linkage.EstimateRequest{
		Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseRC}, Tol: 1e-6,
	})
	if err != nil {
		t.Fatalf("repulsion: %v", err)
	}
	if math.Abs(cc.RF[0]-rc.RF[0]) > 1e-6 {
		t.Errorf("rf differs across equivalent encodings: %v vs %v", cc.RF[0], rc.RF[0])
	}
	if math.Abs(cc.LogLik-rc.LogLik) > 1e-6 {
		t.Errorf("loglik differs across equivalent encodings: %v vs %v", cc.LogLik, rc.LogLik)
	}
}

func TestEstimateWrongPhaseScoresWorse(t *testing.T) {
	// Tightly linked coupling data: the correct phase explains it with a
	// small rf, the wrong phase needs pervasive recombination.
	var states [][2]int
	for i := 0; i < 20; i++ {
		states = append(states, [2]int{i % 4, i % 4})
	}
	states = append(states, [2]int{0, 1})

	data := pairData(states)
	est := &Estimator{}
	right, err := est.Estimate(context.Background(), data, linkage.EstimateRequest{
		Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseCC}, Tol: 1e-6,
	})
	if err != nil {
		t.Fatalf("cc: %v", err)
	}
	wrong, err := est.Estimate(context.Background(), data, linkage.EstimateRequest{
		Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseRR}, Tol: 1e-6,
	})
	if err != nil {
		t.Fatalf("rr: %v", err)
	}
	if right.LogLik <= wrong.LogLik {
		t.Errorf("correct phase loglik %v not above wrong phase %v", right.LogLik, wrong.LogLik)
	}
	if right.RF[0] >= wrong.RF[0] {
		t.Errorf("correct phase rf %v not below wrong phase %v", right.RF[0], wrong.RF[0])
	}
}

func TestEstimateHandlesMissingAndPartiallyInformative(t *testing.T) {
	// Parent-1 markers only (D1) with some missing observations: the
	// estimate must stay finite and inside (0, 0.5).
	n := 24
	m1 := linkage.Marker{Name: "d1a", Seg: linkage.SegD1, Genos: make([]int, n)}
	m2 := linkage.Marker{Name: "d1b", Seg: linkage.SegD1, Genos: make([]int, n)}
	for i := 0; i < n; i++ {
		g := 1 + i%2
		m1.Genos[i] = g
		m2.Genos[i] = g
	}
	m2.Genos[1] = 3 - m2.Genos[1]
	m2.Genos[7] = 3 - m2.Genos[7]
	m1.Genos[3] = linkage.GenoMissing
	m2.Genos[10] = linkage.GenoMissing

	data := &linkage.Dataset{Markers: []linkage.Marker{m1, m2}, NIndividuals: n}
	res, err := (&Estimator{}).Estimate(context.Background(), data, linkage.EstimateRequest{
		Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseCC}, Tol: 1e-5,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if math.IsNaN(res.RF[0]) || res.RF[0] <= 0 || res.RF[0] >= 0.5 {
		t.Errorf("rf = %v, want inside (0, 0.5)", res.RF[0])
	}
	if math.IsNaN(res.LogLik) || math.IsInf(res.LogLik, 0) {
		t.Errorf("LogLik = %v, want finite", res.LogLik)
	}
}

func TestEstimateThreeMarkersUsesSeeds(t *testing.T) {
	// Three fully informative markers in a chain; the second interval
	// seeds from a provided rf and both intervals must land near their
	// empirical switch rates.
	var triples [][3]int
	for i := 0; i < 16; i++ {
		triples = append(triples, [3]int{i % 4, i % 4, i % 4})
	}
	triples = append(triples,
		[3]int{0, 2, 2}, [3]int{0, 2, 2}, // interval 1 recombinants
		[3]int{1, 1, 3}, [3]int{1, 1, 3}, // interval 2 recombinants
	)

	n := len(triples)
	mk := func(name string, at int) linkage.Marker {
		m := linkage.Marker{Name: name, Seg: linkage.SegA, Genos: make([]int, n)}
		for i, tr := range triples {
			m.Genos[i] = tr[at] + 1
		}
		return m
	}
	data := &linkage.Dataset{
		Markers:      []linkage.Marker{mk("a", 0), mk("b", 1), mk("c", 2)},
		NIndividuals: n,
	}

	res, err := (&Estimator{}).Estimate(context.Background(), data, linkage.EstimateRequest{
		Order:  []int{0, 1, 2},
		Phases: []linkage.Phase{linkage.PhaseCC, linkage.PhaseCC},
		RF:     []float64{math.NaN(), 0.05},
		Tol:    1e-6,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	want := 2.0 / (2 * float64(n))
	for k, rf := range res.RF {
		if math.Abs(rf-want) > 5e-3 {
			t.Errorf("rf[%d] = %v, want ~%v", k, rf, want)
		}
	}
}

func TestEstimateValidation(t *testing.T) {
	data := pairData([][2]int{{0, 0}, {1, 1}})
	est := &Estimator{}

	_, err := est.Estimate(context.Background(), nil, linkage.EstimateRequest{Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseCC}})
	if !errors.Is(err, errors.ErrCodeInvalidDataset) {
		t.Errorf("nil dataset: err = %v, want INVALID_DATASET", err)
	}

	_, err = est.Estimate(context.Background(), data, linkage.EstimateRequest{Order: []int{0}})
	if !errors.Is(err, errors.ErrCodeInvalidSequence) {
		t.Errorf("single marker: err = %v, want INVALID_SEQUENCE", err)
	}

	_, err = est.Estimate(context.Background(), data, linkage.EstimateRequest{Order: []int{0, 5}, Phases: []linkage.Phase{linkage.PhaseCC}})
	if !errors.Is(err, errors.ErrCodeInvalidSequence) {
		t.Errorf("out-of-range marker: err = %v, want INVALID_SEQUENCE", err)
	}

	_, err = est.Estimate(context.Background(), data, linkage.EstimateRequest{Order: []int{0, 1}, Phases: nil})
	if !errors.Is(err, errors.ErrCodeInvalidSequence) {
		t.Errorf("missing phases: err = %v, want INVALID_SEQUENCE", err)
	}
}

func TestEstimateRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Estimator{}).Estimate(ctx, pairData([][2]int{{0, 0}, {1, 1}}), linkage.EstimateRequest{
		Order: []int{0, 1}, Phases: []linkage.Phase{linkage.PhaseCC},
	})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}
