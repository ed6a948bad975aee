// Package seed produces initial marker orders for the multipoint search.
//
// Order seeding is a heuristic concern, kept behind the Seeder interface
// so external ordering tools can be plugged in. The bundled Greedy seeder
// chains markers by their pairwise recombination fractions: it anchors a
// chain on a strongly supported pair and repeatedly attaches the closest
// unplaced marker to whichever end it fits best. Several replicates run
// from different anchors and the tightest chain wins.
package seed

import (
	"context"
	"math"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

// Seeder produces an initial order over the given marker indices.
// Implementations must be safe for concurrent use.
type Seeder interface {
	// SeedOrder returns a permutation of markers. replicates is the number
	// of independent attempts (at least 1), parallel the worker budget for
	// running them.
	SeedOrder(ctx context.Context, markers []int, replicates, parallel int) ([]int, error)
}

// Greedy is the bundled two-point chain seeder. Replicate i anchors its
// chain on the i-th best supported pair, so replicates are deterministic
// and distinct.
type Greedy struct {
	Table linkage.TwoPointTable
}

var _ Seeder = (*Greedy)(nil)

// SeedOrder implements Seeder.
func (g *Greedy) SeedOrder(ctx context.Context, markers []int, replicates, parallel int) ([]int, error) {
	if g.Table == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "greedy seeder needs a two-point table")
	}
	if len(markers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no markers to seed")
	}
	if len(markers) <= 2 {
		return slices.Clone(markers), nil
	}
	if replicates < 1 {
		replicates = 1
	}
	if parallel < 1 {
		parallel = 1
	}

	anchors := g.anchors(markers)
	if len(anchors) == 0 {
		// No pairwise signal at all: keep the input order.
		return slices.Clone(markers), nil
	}
	if replicates > len(anchors) {
		replicates = len(anchors)
	}

	type chain struct {
		order []int
		score float64
	}
	chains := make([]chain, replicates)

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for i := 0; i < replicates; i++ {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			order := g.grow(markers, anchors[i])
			chains[i] = chain{order: order, score: g.score(order)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Tightest chain wins; replicate index breaks ties so the result is
	// independent of scheduling.
	best := 0
	for i := 1; i < len(chains); i++ {
		if chains[i].score < chains[best].score {
			best = i
		}
	}
	return chains[best].order, nil
}

// anchors ranks the available marker pairs by LOD support, strongest
// first, with the pair key as a deterministic tie-break.
func (g *Greedy) anchors(markers []int) []linkage.PairKey {
	type scored struct {
		key linkage.PairKey
		lod float64
	}
	var pairs []scored
	for i := 0; i < len(markers); i++ {
		for j := i + 1; j < len(markers); j++ {
			if c, ok := g.best(markers[i], markers[j]); ok {
				pairs = append(pairs, scored{key: linkage.NewPairKey(markers[i], markers[j]), lod: c.LOD})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].lod != pairs[b].lod {
			return pairs[a].lod > pairs[b].lod
		}
		if pairs[a].key.A != pairs[b].key.A {
			return pairs[a].key.A < pairs[b].key.A
		}
		return pairs[a].key.B < pairs[b].key.B
	})
	keys := make([]linkage.PairKey, len(pairs))
	for i, p := range pairs {
		keys[i] = p.key
	}
	return keys
}

// best returns the strongest candidate for a pair: lowest recombination
// fraction, LOD breaking ties.
func (g *Greedy) best(a, b int) (linkage.PhaseCandidate, bool) {
	var out linkage.PhaseCandidate
	found := false
	for _, c := range g.Table.Phases(a, b) {
		if math.IsNaN(c.RF) {
			continue
		}
		if !found || c.RF < out.RF || (c.RF == out.RF && c.LOD > out.LOD) {
			out = c
			found = true
		}
	}
	return out, found
}

// grow builds one chain from the anchor pair, repeatedly attaching the
// unplaced marker with the smallest recombination fraction to either end.
// Markers with no signal toward either end are appended in input order.
func (g *Greedy) grow(markers []int, anchor linkage.PairKey) []int {
	placed := map[int]bool{anchor.A: true, anchor.B: true}
	chain := []int{anchor.A, anchor.B}

	for len(chain) < len(markers) {
		bestMarker, bestRF, atFront := -1, math.Inf(1), false
		for _, m := range markers {
			if placed[m] {
				continue
			}
			if c, ok := g.best(chain[0], m); ok && c.RF < bestRF {
				bestMarker, bestRF, atFront = m, c.RF, true
			}
			if c, ok := g.best(chain[len(chain)-1], m); ok && c.RF < bestRF {
				bestMarker, bestRF, atFront = m, c.RF, false
			}
		}
		if bestMarker < 0 {
			break
		}
		placed[bestMarker] = true
		if atFront {
			chain = append([]int{bestMarker}, chain...)
		} else {
			chain = append(chain, bestMarker)
		}
	}
	for _, m := range markers {
		if !placed[m] {
			chain = append(chain, m)
		}
	}
	return chain
}

// score rates a chain by its mean adjacent recombination fraction; pairs
// with no table entry count as unlinked.
func (g *Greedy) score(order []int) float64 {
	rfs := make([]float64, 0, len(order)-1)
	for i := 1; i < len(order); i++ {
		if c, ok := g.best(order[i-1], order[i]); ok {
			rfs = append(rfs, c.RF)
		} else {
			rfs = append(rfs, 0.5)
		}
	}
	return stat.Mean(rfs, nil)
}
