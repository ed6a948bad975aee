package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkruijt/linkmap/pkg/cache"
	mapio "github.com/mkruijt/linkmap/pkg/io"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/linkage/hmm"
	"github.com/mkruijt/linkmap/pkg/linkage/ripple"
	"github.com/mkruijt/linkmap/pkg/linkage/search"
)

// newRippleCmd creates the ripple command: refine a previously built map
// by sliding-window search.
func newRippleCmd(a *app) *cobra.Command {
	var (
		out      string
		window   int
		minTries int
		rule     string
		parallel int
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "ripple <dataset.json> <map.json>",
		Short: "Refine an existing map order by sliding-window search",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			data, tab, err := mapio.ImportDataset(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			m, err := mapio.ReadMap(f)
			f.Close()
			if err != nil {
				return err
			}

			seq := linkage.NewSequence(m.Markers, data, tab)
			if len(m.Phases) == len(m.Markers)-1 {
				seq.Phases = m.Phases
				seq.RF = m.RF
				seq.LogLik = m.LogLik
			}

			rl := a.cfg.Ripple.Rule
			if cmd.Flags().Changed("rule") {
				rl = rule
			}
			rippleRule, err := ripple.ParseRule(rl)
			if err != nil {
				return err
			}
			opts := ripple.Options{
				Window:      a.cfg.Ripple.Window,
				Rule:        rippleRule,
				MinTries:    a.cfg.Ripple.MinTries,
				RandomCount: a.cfg.Ripple.RandomCount,
				Seed:        a.cfg.Ripple.RandomSeed,
				Parallel:    a.cfg.Mapping.Parallel,
				Search:      search.Options{Parallel: a.cfg.Mapping.Parallel, Tol: a.cfg.Mapping.Tolerance},
			}
			if cmd.Flags().Changed("window") {
				opts.Window = window
			}
			if cmd.Flags().Changed("min-tries") {
				opts.MinTries = minTries
			}
			if cmd.Flags().Changed("parallel") {
				opts.Parallel = parallel
				opts.Search.Parallel = parallel
			}

			store := a.buildCache(ctx, noCache, logger)
			est := cache.NewCachedEstimator(&hmm.Estimator{}, store, nil, data, 0)

			track := newProgress(logger)
			res, err := ripple.Optimize(ctx, seq, est, opts)
			if err != nil {
				return err
			}
			if res.Improved {
				track.done(fmt.Sprintf("Improved order in %d sweep(s), log-likelihood %.3f", res.Sweeps, res.Seq.LogLik))
			} else {
				track.done(fmt.Sprintf("Order already optimal after %d sweep(s)", res.Sweeps))
			}

			mapFunc, err := linkage.ParseMapFunc(a.cfg.Mapping.MapFunc)
			if err != nil {
				return err
			}
			refined := linkage.FromSequence(res.Seq, mapFunc)
			refined.Warnings = res.Warnings

			for _, w := range refined.Warnings {
				printWarning("%s", w)
			}
			if out != "" {
				if err := mapio.ExportMap(refined, out); err != nil {
					return err
				}
				printSuccess("Refined map written to %s", out)
				return nil
			}
			return mapio.WriteMap(refined, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the refined map to this file instead of stdout")
	cmd.Flags().IntVar(&window, "window", 0, "sliding-window size")
	cmd.Flags().IntVar(&minTries, "min-tries", 0, "minimum clean sweeps before stopping")
	cmd.Flags().StringVar(&rule, "rule", "", "candidate rule: one, all, or random")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "candidate evaluation worker budget")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable estimate memoization for this run")
	return cmd
}
