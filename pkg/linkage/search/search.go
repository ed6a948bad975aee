// Package search implements multipoint phase search: growing a linkage
// map marker by marker, choosing each new interval's linkage phase by
// maximum multipoint likelihood.
//
// # Algorithm
//
// The map is grown by induction on sequence length. The two-marker base
// case pulls the candidate phases for the pair from the two-point table
// and scores each with the multipoint estimator. Each later step appends
// one marker: its candidate phases are combined with the already-fixed
// phases of the prefix (earlier decisions are never revisited) and every
// full candidate vector is scored on the complete order so far. The
// maximum-likelihood candidate wins; ties resolve to the first candidate
// in the two-point table's enumeration order. This first-occurrence
// tie-break is a deliberate policy so results are reproducible across
// runs and scheduling.
//
// After the last marker is placed, one final estimator call on the full
// order produces the definitive recombination fractions and likelihood.
//
// # Concurrency
//
// Candidate evaluations within a step are independent, side-effect-free
// computations against read-only inputs; they fan out over a bounded
// worker pool (at most four workers, since at most four phases exist).
// Results are keyed by candidate identity and reduced deterministically,
// so the outcome does not depend on completion order. Steps themselves
// are strictly sequential: each depends on the previous step's choice.
//
// # Failure Policy
//
// An estimator that runs out of its tolerance budget is a warning, never
// an abort: the best estimate found is kept and the search moves on. A
// step where no candidate yields a finite likelihood leaves that interval
// with the Unknown phase, raises a warning, and continues with the chosen
// prefix. Only malformed input and hard estimator errors (for example a
// cancelled context) abort the call.
package search

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/observability"
)

// DefaultTol is the estimator tolerance used when Options.Tol is unset.
const DefaultTol = 1e-5

// maxCandidates is the number of outcross phases, and therefore the hard
// cap on per-step fan-out.
const maxCandidates = 4

// Options configures a phase search. The zero value runs sequentially
// with the default tolerance.
type Options struct {
	// Parallel is the worker budget for candidate evaluation within one
	// step. Values below 1 mean sequential; values above 4 are capped,
	// since at most 4 phase candidates exist per step.
	Parallel int

	// Tol is the numerical tolerance handed to the estimator.
	Tol float64
}

func (o Options) tol() float64 {
	if o.Tol <= 0 {
		return DefaultTol
	}
	return o.Tol
}

func (o Options) workers() int {
	p := o.Parallel
	if p < 1 {
		p = 1
	}
	return min(p, maxCandidates)
}

// Result is the outcome of a phase search: the resolved sequence and the
// non-fatal warnings raised along the way.
type Result struct {
	Seq      *linkage.Sequence
	Warnings []linkage.Warning
}

// Run resolves the linkage phases and recombination fractions of seq
// against the estimator, maximizing multipoint log-likelihood.
//
// Three input modes, decided by the sequence's state:
//   - phases undetermined: the full phase search runs;
//   - phases resolved but no likelihood cached: a single re-estimation
//     refreshes the recombination fractions and likelihood;
//   - phases resolved and likelihood cached: the sequence is returned
//     unchanged.
//
// Run never mutates seq; the returned sequence is a fresh value.
func Run(ctx context.Context, seq *linkage.Sequence, est linkage.Estimator, opts Options) (*Result, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil estimator")
	}

	start := time.Now()
	observability.Mapping().OnSearchStart(ctx, len(seq.Markers))

	res, err := run(ctx, seq, est, opts)
	var logLik float64 = math.NaN()
	if res != nil && res.Seq != nil {
		logLik = res.Seq.LogLik
	}
	observability.Mapping().OnSearchComplete(ctx, len(seq.Markers), logLik, time.Since(start), err)
	return res, err
}

func run(ctx context.Context, seq *linkage.Sequence, est linkage.Estimator, opts Options) (*Result, error) {
	if seq.Phased() {
		if seq.Estimated() {
			// Already fully resolved.
			return &Result{Seq: seq.Clone()}, nil
		}
		// Phases supplied, fractions stale: re-estimate directly.
		out := seq.Clone()
		var warns []linkage.Warning
		if err := finalize(ctx, out, est, opts, &warns); err != nil {
			return nil, err
		}
		return &Result{Seq: out, Warnings: warns}, nil
	}

	out := seq.Clone()
	out.Phases = make([]linkage.Phase, 0, len(out.Markers)-1)
	out.RF = make([]float64, 0, len(out.Markers)-1)

	var warns []linkage.Warning
	for step := 1; step < len(out.Markers); step++ {
		prev, next := out.Markers[step-1], out.Markers[step]
		cands := candidates(out.TwoPoint, prev, next)
		observability.Mapping().OnSearchStep(ctx, step, len(cands))

		phase, rf, warn, err := evalStep(ctx, out, est, opts, step, cands)
		if err != nil {
			return nil, err
		}
		if warn != nil {
			warn.Step = step
			warn.Marker = next
			warns = append(warns, *warn)
			if warn.Kind == linkage.WarnConvergence {
				observability.Mapping().OnConvergenceWarning(ctx, step, next)
			}
		}
		out.Phases = append(out.Phases, phase)
		out.RF = append(out.RF, rf)
	}

	if err := finalize(ctx, out, est, opts, &warns); err != nil {
		return nil, err
	}
	return &Result{Seq: out, Warnings: warns}, nil
}

// candidates returns the phase candidates for the pair, falling back to
// all four phases with unknown support when the table has no entry. The
// pair then carries no pairwise signal, but the multipoint likelihood can
// still separate the phases.
func candidates(tp linkage.TwoPointTable, a, b int) []linkage.PhaseCandidate {
	if tp != nil {
		if c := tp.Phases(a, b); len(c) > 0 {
			if len(c) > maxCandidates {
				c = c[:maxCandidates]
			}
			return c
		}
	}
	return []linkage.PhaseCandidate{
		{Phase: linkage.PhaseCC, RF: linkage.RFUnknown},
		{Phase: linkage.PhaseCR, RF: linkage.RFUnknown},
		{Phase: linkage.PhaseRC, RF: linkage.RFUnknown},
		{Phase: linkage.PhaseRR, RF: linkage.RFUnknown},
	}
}

type eval struct {
	res linkage.EstimateResult
	err error
}

// evalStep scores every candidate phase for the interval added at step
// and picks the winner. The returned warning is nil on a clean pick.
func evalStep(ctx context.Context, s *linkage.Sequence, est linkage.Estimator, opts Options, step int, cands []linkage.PhaseCandidate) (linkage.Phase, float64, *linkage.Warning, error) {
	order := s.Markers[:step+1]
	evals := make([]eval, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.workers(), len(cands)))
	for i, c := range cands {
		g.Go(func() error {
			req := linkage.EstimateRequest{
				Order:  order,
				Phases: appendPhase(effective(s.Phases), c.Phase),
				RF:     appendRF(s.RF, c.RF),
				Tol:    opts.tol(),
			}
			res, err := est.Estimate(gctx, s.Data, req)
			evals[i] = eval{res: res, err: err}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return linkage.PhaseUnknown, linkage.RFUnknown, nil,
			errors.Wrap(errors.ErrCodeEstimator, err, "evaluating step %d", step)
	}

	// Deterministic reduction: maximum finite likelihood, ties broken by
	// the first candidate in table enumeration order.
	best := -1
	for i := range evals {
		ll := evals[i].res.LogLik
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			continue
		}
		if best < 0 || ll > evals[best].res.LogLik {
			best = i
		}
	}
	if best < 0 {
		w := &linkage.Warning{Kind: linkage.WarnPhaseUndetermined,
			Detail: "no candidate produced a finite likelihood"}
		return linkage.PhaseUnknown, linkage.RFUnknown, w, nil
	}

	chosen := evals[best].res
	rf := linkage.RFUnknown
	if len(chosen.RF) == step {
		rf = chosen.RF[step-1]
	}
	if !chosen.Converged {
		w := &linkage.Warning{Kind: linkage.WarnConvergence,
			Detail: "tolerance budget exhausted; best estimate kept"}
		return cands[best].Phase, rf, w, nil
	}
	return cands[best].Phase, rf, nil, nil
}

// finalize runs the definitive estimate over the complete order and
// stores the refined fractions and likelihood on s.
func finalize(ctx context.Context, s *linkage.Sequence, est linkage.Estimator, opts Options, warns *[]linkage.Warning) error {
	req := linkage.EstimateRequest{
		Order:  s.Markers,
		Phases: effective(s.Phases),
		RF:     s.RF,
		Tol:    opts.tol(),
	}
	res, err := est.Estimate(ctx, s.Data, req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEstimator, err, "final estimate over %d markers", len(s.Markers))
	}
	if !res.Converged {
		*warns = append(*warns, linkage.Warning{
			Kind:   linkage.WarnConvergence,
			Step:   len(s.Markers) - 1,
			Marker: s.Markers[len(s.Markers)-1],
			Detail: "final estimate did not converge; best likelihood kept",
		})
		observability.Mapping().OnConvergenceWarning(ctx, len(s.Markers)-1, s.Markers[len(s.Markers)-1])
	}
	if len(res.RF) == len(s.Markers)-1 {
		s.RF = res.RF
	}
	s.LogLik = res.LogLik
	return nil
}

// effective maps undetermined phases to coupling/coupling for estimator
// requests. An Unknown entry only appears after a step failed to resolve;
// the substitution keeps later steps evaluable while the reported result
// retains the sentinel.
func effective(phases []linkage.Phase) []linkage.Phase {
	out := make([]linkage.Phase, len(phases))
	for i, p := range phases {
		if p == linkage.PhaseUnknown {
			p = linkage.PhaseCC
		}
		out[i] = p
	}
	return out
}

func appendPhase(prefix []linkage.Phase, p linkage.Phase) []linkage.Phase {
	out := make([]linkage.Phase, 0, len(prefix)+1)
	out = append(out, prefix...)
	if p == linkage.PhaseUnknown {
		p = linkage.PhaseCC
	}
	return append(out, p)
}

func appendRF(prefix []float64, rf float64) []float64 {
	out := make([]float64, 0, len(prefix)+1)
	out = append(out, prefix...)
	return append(out, rf)
}
