package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkruijt/linkmap/pkg/errors"
	mapio "github.com/mkruijt/linkmap/pkg/io"
	"github.com/mkruijt/linkmap/pkg/linkage/batch"
)

// newBatchesCmd creates the batches command, which prints the partition
// plan without running any estimation. Useful for tuning size, overlap,
// and tolerance before a long build.
func newBatchesCmd(a *app) *cobra.Command {
	var (
		size       int
		overlap    int
		sizeWindow int
	)

	cmd := &cobra.Command{
		Use:   "batches <dataset.json | marker-count>",
		Short: "Show how a linkage group would be split into batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				data, _, err := mapio.ImportDataset(args[0])
				if err != nil {
					return err
				}
				n = len(data.Markers)
			}
			if n <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "marker count must be positive, got %d", n)
			}

			opts := batch.PartitionOptions{
				Size:      a.cfg.Batch.Size,
				Overlap:   a.cfg.Batch.Overlap,
				Tolerance: a.cfg.Batch.SizeWindow,
			}
			if cmd.Flags().Changed("batch-size") {
				opts.Size = size
			}
			if cmd.Flags().Changed("overlap") {
				opts.Overlap = overlap
			}
			if cmd.Flags().Changed("size-window") {
				opts.Tolerance = sizeWindow
			}

			if n <= opts.Size+opts.Overlap {
				printSuccess("%d markers fit in a single batch (size %d, overlap %d)", n, opts.Size, opts.Overlap)
				return nil
			}

			batches, err := batch.Partition(n, opts)
			if err != nil {
				return err
			}

			fmt.Println(styleTitle.Render(fmt.Sprintf("%d markers, %d batches", n, len(batches))))
			fmt.Println(styleHeader.Render(fmt.Sprintf("%-6s %-14s %8s %8s", "batch", "range", "size", "overlap")))
			for i, b := range batches {
				fmt.Printf("%s %s %s %s\n",
					styleDim.Render(fmt.Sprintf("%-6d", i)),
					styleValue.Render(fmt.Sprintf("%-14s", b.String())),
					styleNumber.Render(fmt.Sprintf("%8d", b.Size())),
					styleNumber.Render(fmt.Sprintf("%8d", b.Overlap)),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "batch-size", 0, "per-batch stride in markers")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "marker overlap between batches")
	cmd.Flags().IntVar(&sizeWindow, "size-window", 0, "allowed stride deviation")
	return cmd
}
