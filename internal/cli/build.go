package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkruijt/linkmap/pkg/cache"
	mapio "github.com/mkruijt/linkmap/pkg/io"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/linkage/ripple"
	"github.com/mkruijt/linkmap/pkg/pipeline"
	"github.com/mkruijt/linkmap/pkg/session"
)

// newBuildCmd creates the build command: dataset in, linkage map out.
func newBuildCmd(a *app) *cobra.Command {
	var (
		out          string
		withRipple   bool
		seedOrder    bool
		noCache      bool
		save         bool
		showTable    bool
		size         int
		overlap      int
		sizeWindow   int
		rippleWindow int
		minTries     int
		parallel     int
		rule         string
		mapFunc      string
		tol          float64
	)

	cmd := &cobra.Command{
		Use:   "build <dataset.json>",
		Short: "Build a linkage map from a dataset file",
		Long: `Build orders the markers of one linkage group into a map. The input file
carries the genotype matrix and the two-point table; the output is a JSON
map document with phases, recombination fractions, and cumulative
distances.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			opts, err := a.pipelineOptions(cmd, rule, mapFunc)
			if err != nil {
				return err
			}
			opts.Ripple = withRipple
			opts.Seed = seedOrder || a.cfg.Mapping.Seed
			if cmd.Flags().Changed("batch-size") {
				opts.BatchSize = size
			}
			if cmd.Flags().Changed("overlap") {
				opts.BatchOverlap = overlap
			}
			if cmd.Flags().Changed("size-window") {
				opts.SizeWindow = sizeWindow
			}
			if cmd.Flags().Changed("ripple-window") {
				opts.RippleWindow = rippleWindow
			}
			if cmd.Flags().Changed("min-tries") {
				opts.RippleMinTries = minTries
			}
			if cmd.Flags().Changed("parallel") {
				opts.Parallel = parallel
			}
			if cmd.Flags().Changed("tol") {
				opts.Tol = tol
			}

			track := newProgress(logger)
			data, tab, err := mapio.ImportDataset(args[0])
			if err != nil {
				return err
			}
			track.done(fmt.Sprintf("Loaded %d markers, %d individuals, %d two-point pairs",
				len(data.Markers), data.NIndividuals, tab.Len()))

			store := a.buildCache(ctx, noCache, logger)
			runner := pipeline.NewRunner(nil, store, nil, logger)

			track = newProgress(logger)
			res, err := runner.Execute(ctx, data, tab, opts)
			if err != nil {
				return err
			}
			track.done(fmt.Sprintf("Mapped %d markers in %d batch(es)", res.Stats.Markers, res.Stats.Batches))

			for _, w := range res.Map.Warnings {
				printWarning("%s", w)
			}
			if showTable {
				fmt.Println(renderMapTable(res.Map))
			}
			fmt.Println(renderSummary(res.Summary))

			if out != "" {
				if err := mapio.ExportMap(res.Map, out); err != nil {
					return err
				}
				printSuccess("Map written to %s", out)
			} else {
				if err := mapio.WriteMap(res.Map, os.Stdout); err != nil {
					return err
				}
			}

			if save {
				return a.saveSession(ctx, res, opts)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the map JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&withRipple, "ripple", false, "refine each batch order by sliding-window search")
	cmd.Flags().BoolVar(&seedOrder, "seed", false, "seed the initial order from the two-point table")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable estimate memoization for this run")
	cmd.Flags().BoolVar(&save, "save", false, "store the finished map as a session")
	cmd.Flags().BoolVar(&showTable, "table", false, "print the per-marker map table")
	cmd.Flags().IntVar(&size, "batch-size", 0, "per-batch stride in markers")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "marker overlap between batches")
	cmd.Flags().IntVar(&sizeWindow, "size-window", 0, "allowed stride deviation")
	cmd.Flags().IntVar(&rippleWindow, "ripple-window", 0, "ripple window size")
	cmd.Flags().IntVar(&minTries, "min-tries", 0, "minimum clean ripple sweeps")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "batch-level worker budget")
	cmd.Flags().StringVar(&rule, "rule", "", "ripple rule: one, all, or random")
	cmd.Flags().StringVar(&mapFunc, "map-func", "", "distance function: kosambi or haldane")
	cmd.Flags().Float64Var(&tol, "tol", 0, "estimator convergence tolerance")

	return cmd
}

// pipelineOptions converts the loaded config into pipeline options,
// applying the rule and map-func flags when set.
func (a *app) pipelineOptions(cmd *cobra.Command, ruleFlag, mapFuncFlag string) (pipeline.Options, error) {
	mf := a.cfg.Mapping.MapFunc
	if cmd.Flags().Changed("map-func") {
		mf = mapFuncFlag
	}
	mapFunc, err := linkage.ParseMapFunc(mf)
	if err != nil {
		return pipeline.Options{}, err
	}

	rl := a.cfg.Ripple.Rule
	if cmd.Flags().Changed("rule") {
		rl = ruleFlag
	}
	rippleRule, err := ripple.ParseRule(rl)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		MapFunc:        mapFunc,
		BatchSize:      a.cfg.Batch.Size,
		BatchOverlap:   a.cfg.Batch.Overlap,
		SizeWindow:     a.cfg.Batch.SizeWindow,
		RippleWindow:   a.cfg.Ripple.Window,
		RippleRule:     rippleRule,
		RippleMinTries: a.cfg.Ripple.MinTries,
		RandomCount:    a.cfg.Ripple.RandomCount,
		RandomSeed:     a.cfg.Ripple.RandomSeed,
		Tol:            a.cfg.Mapping.Tolerance,
		Parallel:       a.cfg.Mapping.Parallel,
	}, nil
}

// buildCache opens the configured cache, degrading to no caching when
// the backend is unavailable. A cache failure should never block a run.
func (a *app) buildCache(ctx context.Context, noCache bool, logger *log.Logger) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	store, err := a.openCache(ctx)
	if err != nil {
		logger.Warn("estimate cache unavailable, continuing without", "err", err)
		return cache.NewNullCache()
	}
	return store
}

// saveSession persists the finished run through the configured store.
func (a *app) saveSession(ctx context.Context, res *pipeline.Result, opts pipeline.Options) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	sess := session.New(res.DatasetHash, session.Params{
		MapFunc:      opts.MapFunc.String(),
		BatchSize:    opts.BatchSize,
		BatchOverlap: opts.BatchOverlap,
		SizeWindow:   opts.SizeWindow,
		RippleWindow: opts.RippleWindow,
		RippleRule:   opts.RippleRule.String(),
		Tolerance:    opts.Tol,
		Parallel:     opts.Parallel,
	}, res.Map, res.Summary)
	if err := store.Put(ctx, sess); err != nil {
		return err
	}
	printSuccess("Session saved: %s", sess.ID)
	return nil
}
