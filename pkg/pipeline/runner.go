package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mkruijt/linkmap/pkg/cache"
	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/linkage/batch"
	"github.com/mkruijt/linkmap/pkg/linkage/hmm"
	"github.com/mkruijt/linkmap/pkg/linkage/ripple"
	"github.com/mkruijt/linkmap/pkg/linkage/search"
	"github.com/mkruijt/linkmap/pkg/linkage/seed"
)

// Runner executes map constructions. It is stateless apart from its
// collaborators; one Runner serves concurrent runs with different
// options.
type Runner struct {
	Estimator linkage.Estimator
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
}

// NewRunner creates a runner. A nil estimator means the bundled HMM
// estimator, a nil cache disables memoization, a nil keyer means the
// default, and a nil logger means log.Default().
func NewRunner(est linkage.Estimator, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if est == nil {
		est = &hmm.Estimator{}
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Estimator: est, Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs the full pipeline against one dataset and its two-point
// table.
func (r *Runner) Execute(ctx context.Context, data *linkage.Dataset, tp linkage.TwoPointTable, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "validating input")
	}

	result := &Result{DatasetHash: cache.DatasetHash(data)}
	est := cache.NewCachedEstimator(r.Estimator, r.Cache, r.Keyer, data, opts.CacheTTL)

	order, seedTime, err := r.seedOrder(ctx, data, tp, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.SeedTime = seedTime
	result.Stats.Markers = len(order)

	seq := linkage.NewSequence(order, data, tp)
	mapper := r.mapper(est, opts)

	mapStart := time.Now()
	m, batches, err := r.buildMap(ctx, seq, mapper, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.MapTime = time.Since(mapStart)
	result.Stats.Batches = batches
	result.Map = m
	result.Summary = m.Summarize(opts.MapFunc)

	r.Logger.Info("map built",
		"markers", len(m.Markers),
		"length_cm", result.Summary.LengthCM,
		"log_lik", m.LogLik,
		"batches", batches,
		"warnings", len(m.Warnings),
		"duration", result.Stats.MapTime)
	return result, nil
}

// seedOrder resolves the initial marker order: explicit, seeded, or the
// dataset order.
func (r *Runner) seedOrder(ctx context.Context, data *linkage.Dataset, tp linkage.TwoPointTable, opts Options) ([]int, time.Duration, error) {
	if len(opts.Order) > 0 {
		for _, m := range opts.Order {
			if m < 0 || m >= len(data.Markers) {
				return nil, 0, errors.New(errors.ErrCodeInvalidInput, "order references marker %d, dataset has %d", m, len(data.Markers))
			}
		}
		return opts.Order, 0, nil
	}

	order := make([]int, len(data.Markers))
	for i := range order {
		order[i] = i
	}
	if !opts.Seed || tp == nil {
		return order, 0, nil
	}

	start := time.Now()
	seeder := &seed.Greedy{Table: tp}
	seeded, err := seeder.SeedOrder(ctx, order, opts.SeedReplicates, opts.Parallel)
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)
	r.Logger.Debug("seeded initial order", "replicates", opts.SeedReplicates, "duration", elapsed)
	return seeded, elapsed, nil
}

// mapper builds the per-group mapping function: plain phase search, or
// phase search wrapped by the ripple optimizer.
func (r *Runner) mapper(est linkage.Estimator, opts Options) batch.Mapper {
	if opts.Ripple {
		return func(ctx context.Context, s *linkage.Sequence) (*linkage.Sequence, []linkage.Warning, error) {
			res, err := ripple.Optimize(ctx, s, est, opts.rippleOptions())
			if err != nil {
				return nil, nil, err
			}
			return res.Seq, res.Warnings, nil
		}
	}
	return func(ctx context.Context, s *linkage.Sequence) (*linkage.Sequence, []linkage.Warning, error) {
		res, err := search.Run(ctx, s, est, opts.searchOptions())
		if err != nil {
			return nil, nil, err
		}
		return res.Seq, res.Warnings, nil
	}
}

// buildMap maps the sequence, through batches when the group is long
// enough to partition.
func (r *Runner) buildMap(ctx context.Context, seq *linkage.Sequence, mapper batch.Mapper, opts Options) (*linkage.GlobalMap, int, error) {
	n := len(seq.Markers)
	if n > opts.BatchSize+opts.BatchOverlap {
		batches, err := batch.Partition(n, batch.PartitionOptions{
			Size:      opts.BatchSize,
			Overlap:   opts.BatchOverlap,
			Tolerance: opts.SizeWindow,
		})
		if err != nil {
			return nil, 0, err
		}
		r.Logger.Debug("partitioned group", "markers", n, "batches", len(batches))
		m, err := batch.MapBatches(ctx, seq, batches, mapper, batch.MergeOptions{
			Parallel: opts.Parallel,
			MapFunc:  opts.MapFunc,
		})
		if err != nil {
			return nil, 0, err
		}
		return m, len(batches), nil
	}

	mapped, warns, err := mapper(ctx, seq)
	if err != nil {
		return nil, 0, err
	}
	m := linkage.FromSequence(mapped, opts.MapFunc)
	m.Warnings = warns
	return m, 1, nil
}
