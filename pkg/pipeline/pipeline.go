// Package pipeline runs complete map constructions.
//
// The pipeline ties the building blocks together for the CLI and the
// API: import → optional order seeding → batch partition (for long
// linkage groups) → per-batch phase search, optionally wrapped by the
// ripple optimizer → merge → summary. Centralizing the flow keeps both
// entry points on identical defaults and caching behavior.
//
// # Stages
//
//  1. Seed: choose an initial marker order (explicit, input order, or
//     the greedy two-point chain).
//  2. Map: short groups are mapped in one phase search; long groups are
//     partitioned into overlapping batches mapped concurrently and
//     stitched back together.
//  3. Summarize: cumulative distances and descriptive statistics.
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, fileCache, nil, logger)
//	result, err := runner.Execute(ctx, data, table, pipeline.Options{
//	    Ripple: true,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Summary.LengthCM)
package pipeline

import (
	"time"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/linkage/ripple"
	"github.com/mkruijt/linkmap/pkg/linkage/search"
)

// Default parameters shared by the CLI and the API.
const (
	// DefaultBatchSize is the per-batch stride in markers.
	DefaultBatchSize = 50

	// DefaultBatchOverlap is the marker overlap carried between batches.
	DefaultBatchOverlap = 15

	// DefaultSizeWindow is the allowed stride deviation when fitting
	// batches to the group length.
	DefaultSizeWindow = 10

	// DefaultTol is the estimator convergence tolerance.
	DefaultTol = 1e-5

	// DefaultParallel is the batch-level worker budget. Worker counts are
	// explicit configuration; the pipeline never reads them from the
	// process environment.
	DefaultParallel = 4

	// DefaultSeedReplicates is the number of greedy seeding attempts.
	DefaultSeedReplicates = 3
)

// Options configures one pipeline run.
type Options struct {
	// Order is an explicit initial marker order; empty means dataset
	// order, or a seeded order when Seed is set.
	Order []int

	// Seed runs the greedy two-point seeder to choose the initial order.
	// Ignored when Order is given.
	Seed bool

	// SeedReplicates is the number of seeding attempts; zero means
	// DefaultSeedReplicates.
	SeedReplicates int

	// MapFunc selects the distance function for the final map.
	MapFunc linkage.MapFunc

	// BatchSize, BatchOverlap, and SizeWindow control partitioning; zero
	// values take the defaults. Groups short enough for a single batch
	// are mapped without partitioning.
	BatchSize    int
	BatchOverlap int
	SizeWindow   int

	// Ripple refines each batch order by sliding-window search.
	Ripple bool

	// RippleWindow, RippleRule, RippleMinTries, RandomCount, and
	// RandomSeed configure the refinement; zero values take the ripple
	// package defaults.
	RippleWindow   int
	RippleRule     ripple.Rule
	RippleMinTries int
	RandomCount    int
	RandomSeed     uint64

	// Tol is the estimator tolerance; zero means DefaultTol.
	Tol float64

	// Parallel is the batch-level worker budget; zero means
	// DefaultParallel. Phase-search fan-out within a batch is bounded
	// separately by the candidate count.
	Parallel int

	// CacheTTL bounds the lifetime of memoized estimates; zero stores
	// them without expiration.
	CacheTTL time.Duration
}

// ValidateAndSetDefaults fills zero values and rejects inconsistent
// settings.
func (o *Options) ValidateAndSetDefaults() error {
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchOverlap == 0 {
		o.BatchOverlap = DefaultBatchOverlap
	}
	if o.SizeWindow == 0 {
		o.SizeWindow = DefaultSizeWindow
	}
	if o.Tol == 0 {
		o.Tol = DefaultTol
	}
	if o.Parallel == 0 {
		o.Parallel = DefaultParallel
	}
	if o.SeedReplicates == 0 {
		o.SeedReplicates = DefaultSeedReplicates
	}
	if o.BatchSize < 2 || o.BatchOverlap < 1 || o.SizeWindow < 0 || o.Parallel < 1 || o.Tol <= 0 {
		return errors.New(errors.ErrCodeInvalidInput,
			"inconsistent options: size %d, overlap %d, window %d, parallel %d, tol %g",
			o.BatchSize, o.BatchOverlap, o.SizeWindow, o.Parallel, o.Tol)
	}
	return nil
}

func (o *Options) searchOptions() search.Options {
	return search.Options{Parallel: o.Parallel, Tol: o.Tol}
}

func (o *Options) rippleOptions() ripple.Options {
	return ripple.Options{
		Window:      o.RippleWindow,
		Rule:        o.RippleRule,
		RandomCount: o.RandomCount,
		Seed:        o.RandomSeed,
		MinTries:    o.RippleMinTries,
		Parallel:    o.Parallel,
		Search:      o.searchOptions(),
	}
}

// Stats reports where the run spent its time.
type Stats struct {
	SeedTime time.Duration `json:"seed_time"`
	MapTime  time.Duration `json:"map_time"`
	Markers  int           `json:"markers"`
	Batches  int           `json:"batches"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Map     *linkage.GlobalMap
	Summary linkage.Summary
	Stats   Stats

	// DatasetHash identifies the input for caching and sessions.
	DatasetHash string
}
