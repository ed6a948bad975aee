package batch

import (
	"context"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/observability"
)

// Mapper turns one batch sub-sequence into a phased, estimated sequence.
// The pipeline plugs in plain phase search here, or phase search wrapped
// by the ripple optimizer. Implementations must be safe for concurrent
// use across batches.
type Mapper func(ctx context.Context, seq *linkage.Sequence) (*linkage.Sequence, []linkage.Warning, error)

// MergeOptions configures MapBatches.
type MergeOptions struct {
	// Parallel is the number of batches mapped concurrently. It is
	// independent of any parallelism inside the mapper; the caller keeps
	// the product within machine capacity.
	Parallel int

	// MapFunc converts recombination fractions into the cumulative
	// distances of the stitched map.
	MapFunc linkage.MapFunc
}

func (o MergeOptions) workers() int {
	if o.Parallel < 1 {
		return 1
	}
	return o.Parallel
}

// mapped is one batch's mapping outcome, kept by batch index so the
// stitch order never depends on completion order.
type mapped struct {
	seq   *linkage.Sequence
	warns []linkage.Warning
}

// MapBatches maps every batch of seq independently and stitches the
// results into one global map in batch order.
//
// Stitching compares the overlap markers of each batch against the tail
// of the map built so far. A batch whose overlap comes back reversed is
// re-oriented before appending; a batch whose overlap matches in neither
// orientation aborts the merge with a MERGE_CONFLICT naming the
// junction. The earlier batch's overlap values are kept as authoritative;
// the later batch contributes its suffix, with the junction interval
// taken from the later batch's re-oriented fit.
//
// The returned map's log-likelihood is the sum over batches. It is a
// documented approximation: the batches were fitted independently, so
// the sum is not a joint multipoint likelihood.
func MapBatches(ctx context.Context, seq *linkage.Sequence, batches []Batch, mapper Mapper, opts MergeOptions) (*linkage.GlobalMap, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no batches to map")
	}
	if mapper == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil mapper")
	}
	for i, b := range batches {
		if b.Start < 0 || b.End > len(seq.Markers) || b.Size() < 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"batch %d range %s invalid for %d markers", i, b, len(seq.Markers))
		}
		if i > 0 && (b.Overlap < 1 || b.Overlap >= b.Size()) {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"batch %d overlap %d invalid for range %s", i, b.Overlap, b)
		}
		// The overlap is a tail slice of the map built so far, which is
		// never shorter than the previous batch.
		if i > 0 && b.Overlap > batches[i-1].Size() {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"batch %d overlap %d exceeds batch %d size %d", i, b.Overlap, i-1, batches[i-1].Size())
		}
	}

	results := make([]mapped, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, b := range batches {
		g.Go(func() error {
			start := time.Now()
			observability.Mapping().OnBatchStart(gctx, i, b.Start, b.End)
			sub, warns, err := mapper(gctx, seq.Slice(b.Start, b.End))
			var ll float64 = math.NaN()
			if sub != nil {
				ll = sub.LogLik
			}
			observability.Mapping().OnBatchComplete(gctx, i, ll, time.Since(start), err)
			if err != nil {
				code := errors.GetCode(err)
				if code == "" {
					code = errors.ErrCodeInternal
				}
				return errors.Wrap(code, err, "mapping batch %d %s", i, b)
			}
			results[i] = mapped{seq: sub, warns: warns}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observability.Mapping().OnMergeComplete(ctx, len(batches), 0, err)
		return nil, err
	}

	global, warns, err := stitch(batches, results)
	if err != nil {
		observability.Mapping().OnMergeComplete(ctx, len(batches), 0, err)
		return nil, err
	}

	m := linkage.FromSequence(global, opts.MapFunc)
	m.Warnings = warns
	observability.Mapping().OnMergeComplete(ctx, len(batches), len(m.Markers), nil)
	return m, nil
}

// stitch folds the mapped batches left to right, reconciling orientation
// at every junction and summing the batch log-likelihoods.
func stitch(batches []Batch, results []mapped) (*linkage.Sequence, []linkage.Warning, error) {
	global := results[0].seq.Clone()
	logLik := finiteOrZero(results[0].seq.LogLik)
	warns := slices.Clone(results[0].warns)

	for i := 1; i < len(results); i++ {
		later := results[i].seq
		warns = append(warns, results[i].warns...)
		o := batches[i].Overlap

		tail := global.Markers[len(global.Markers)-o:]
		switch {
		case slices.Equal(tail, later.Markers[:o]):
			// Orientation agrees.
		case overlapReversed(tail, later.Markers):
			later = later.Reverse()
		default:
			return nil, nil, errors.New(errors.ErrCodeMergeConflict,
				"batches %d %s and %d %s disagree on their %d overlap markers under both orientations",
				i-1, batches[i-1], i, batches[i], o)
		}

		// The earlier batch keeps the overlap; the later batch
		// contributes its suffix. Interval o-1 of the later batch spans
		// the junction and carries the re-oriented fit.
		global.Markers = append(global.Markers, later.Markers[o:]...)
		global.Phases = append(global.Phases, later.Phases[o-1:]...)
		global.RF = append(global.RF, later.RF[o-1:]...)
		logLik += finiteOrZero(later.LogLik)
	}

	global.LogLik = logLik
	return global, warns, nil
}

// overlapReversed reports whether the later batch carries the earlier
// tail at its far end in reverse order, i.e. it was mapped in the
// opposite orientation. For an earlier tail [5 6 7] a reversed later
// batch looks like [9 8 7 6 5]: reversing it restores [5 6 7 8 9].
func overlapReversed(tail, laterMarkers []int) bool {
	n := len(tail)
	m := len(laterMarkers)
	if m < n {
		return false
	}
	for i := 0; i < n; i++ {
		if laterMarkers[m-1-i] != tail[i] {
			return false
		}
	}
	return true
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
