// Package ripple refines an established marker order by sliding-window
// permutation search.
//
// A window of size w moves left to right across the mapped sequence. At
// each position the window's markers are permuted according to the
// configured rule, every candidate order is re-mapped from scratch (the
// order changed, so phases must be searched again), and the best
// candidate replaces the current order only when its likelihood strictly
// improves. Windows are processed sequentially - an accepted improvement
// is visible to all later windows - while the candidates within one
// window are evaluated in parallel.
//
// Candidate counts grow quickly with the window size: transposition
// windows ("one") stay quadratic, full permutation windows ("all") are
// w!/2 after removing mirror orders. Callers choose w accordingly; 4 to
// 6 is typical.
package ripple

import (
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/linkage/search"
	"github.com/mkruijt/linkmap/pkg/perm"
)

// Rule selects how candidate orders are generated within a window.
type Rule int8

const (
	// RuleOne tests every pairwise swap within the window.
	RuleOne Rule = iota
	// RuleAll tests every permutation within the window (mirror orders
	// removed).
	RuleAll
	// RuleRandom tests a caller-specified count of random permutations.
	RuleRandom
)

// ParseRule converts a config string into a Rule.
func ParseRule(s string) (Rule, error) {
	switch s {
	case "", "one":
		return RuleOne, nil
	case "all":
		return RuleAll, nil
	case "random":
		return RuleRandom, nil
	}
	return RuleOne, fmt.Errorf("unknown ripple rule %q (want one, all, or random)", s)
}

// String returns the lowercase rule name.
func (r Rule) String() string {
	switch r {
	case RuleAll:
		return "all"
	case RuleRandom:
		return "random"
	default:
		return "one"
	}
}

// Options configures a ripple run.
type Options struct {
	// Window is the sliding-window size; at least 2, at most the
	// sequence length. Zero means the default of 4.
	Window int

	// Rule selects the candidate generator.
	Rule Rule

	// RandomCount is the number of candidates per window under
	// RuleRandom; ignored otherwise. Zero means the window size squared.
	RandomCount int

	// Seed feeds the random generator under RuleRandom so runs are
	// reproducible.
	Seed uint64

	// Parallel is the worker budget for evaluating a window's candidate
	// set. Values below 1 mean sequential.
	Parallel int

	// MinTries, when positive, repeats full sweeps until that many
	// consecutive sweeps pass with no improvement. Deterministic rules
	// stop after the first clean sweep regardless, since repeating it
	// cannot find anything new. Zero runs a single sweep.
	MinTries int

	// Search configures the inner phase searches.
	Search search.Options
}

// DefaultWindow is used when Options.Window is zero.
const DefaultWindow = 4

func (o Options) window() int {
	if o.Window == 0 {
		return DefaultWindow
	}
	return o.Window
}

func (o Options) workers() int {
	if o.Parallel < 1 {
		return 1
	}
	return o.Parallel
}

func (o Options) randomCount() int {
	if o.RandomCount > 0 {
		return o.RandomCount
	}
	w := o.window()
	return w * w
}

// Result is the outcome of a ripple run.
type Result struct {
	// Seq is the refined (or unchanged) sequence, phased and estimated.
	Seq *linkage.Sequence
	// Warnings aggregates the non-fatal warnings of every accepted
	// mapping, including the baseline.
	Warnings []linkage.Warning
	// Improved reports whether any window strictly improved the
	// likelihood.
	Improved bool
	// Sweeps is the number of full sweeps performed.
	Sweeps int
}

// Optimize refines seq's order by sliding-window search. An unmapped
// input is first mapped as-is to establish the baseline likelihood; the
// returned sequence is always phased and estimated.
func Optimize(ctx context.Context, seq *linkage.Sequence, est linkage.Estimator, opts Options) (*Result, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	w := opts.window()
	if w < 2 || w > len(seq.Markers) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"window %d invalid for %d markers", w, len(seq.Markers))
	}

	base, err := search.Run(ctx, seq, est, opts.Search)
	if err != nil {
		return nil, err
	}
	res := &Result{Seq: base.Seq, Warnings: base.Warnings}

	clean := 0
	for {
		improved, err := sweep(ctx, res, est, opts, uint64(res.Sweeps))
		if err != nil {
			return nil, err
		}
		res.Sweeps++
		if improved {
			res.Improved = true
			clean = 0
		} else {
			clean++
		}
		if opts.MinTries <= 0 {
			break
		}
		if clean > 0 {
			// A sweep is deterministic for a given order: once one
			// passes clean, further tries only matter for RuleRandom.
			if opts.Rule != RuleRandom || clean >= opts.MinTries {
				break
			}
		}
	}
	return res, nil
}

// sweep runs one left-to-right pass over all window positions, mutating
// res in place when a window improves the likelihood. pass feeds the
// random rule so repeated sweeps draw fresh candidates.
func sweep(ctx context.Context, res *Result, est linkage.Estimator, opts Options, pass uint64) (bool, error) {
	w := opts.window()
	improvedAny := false

	for start := 0; start+w <= len(res.Seq.Markers); start++ {
		cands := candidates(w, opts, uint64(start)|pass<<32)
		if len(cands) == 0 {
			continue
		}

		type outcome struct {
			res *search.Result
			err error
		}
		outcomes := make([]outcome, len(cands))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.workers())
		for i, p := range cands {
			g.Go(func() error {
				order := applyWindow(res.Seq.Markers, start, p)
				r, err := search.Run(gctx, res.Seq.WithOrder(order), est, opts.Search)
				outcomes[i] = outcome{res: r, err: err}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return false, err
		}

		// Deterministic reduction: best finite likelihood, first
		// candidate in generation order on ties.
		best := -1
		for i := range outcomes {
			ll := outcomes[i].res.Seq.LogLik
			if math.IsNaN(ll) || math.IsInf(ll, 0) {
				continue
			}
			if best < 0 || ll > outcomes[best].res.Seq.LogLik {
				best = i
			}
		}
		// Strict improvement only; an equal likelihood keeps the
		// current order.
		if best >= 0 && outcomes[best].res.Seq.LogLik > res.Seq.LogLik {
			res.Seq = outcomes[best].res.Seq
			res.Warnings = append(res.Warnings, outcomes[best].res.Warnings...)
			improvedAny = true
		}
	}
	return improvedAny, nil
}

// candidates generates the window permutations for one position,
// excluding the identity.
func candidates(w int, opts Options, windowSalt uint64) [][]int {
	switch opts.Rule {
	case RuleAll:
		all := perm.GenerateHalf(w)
		out := all[:0:0]
		for _, p := range all {
			if !slices.Equal(p, perm.Seq(w)) {
				out = append(out, p)
			}
		}
		return out
	case RuleRandom:
		return perm.Random(w, opts.randomCount(), opts.Seed^windowSalt*0x9e3779b97f4a7c15)
	default:
		return perm.Transpositions(w)
	}
}

// applyWindow returns order with positions [start, start+len(p)) permuted
// by p.
func applyWindow(order []int, start int, p []int) []int {
	out := slices.Clone(order)
	for i, src := range p {
		out[start+i] = order[start+src]
	}
	return out
}
