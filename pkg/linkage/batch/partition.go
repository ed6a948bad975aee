// Package batch scales map construction to long marker sequences by
// splitting them into bounded, overlapping windows, mapping each window
// independently, and stitching the sub-maps back into one global map.
//
// # Partitioning
//
// A partition is parameterized by a stride S (markers each batch
// contributes beyond the overlap carried from its predecessor), the
// overlap length O, and a tolerance W allowing the stride to move within
// [S-W, S+W] to make the division even. Batch i covers
// [i*A, i*A+A+O) capped at N, so consecutive batches share exactly O
// markers except at the trailing edge. The partitioner picks the stride
// that minimizes the batch count, breaking ties toward the requested S.
//
// # Merging
//
// Each batch is mapped independently (with available parallelism) and
// the results are stitched in batch order. Because windows are ordered
// independently, a later batch can legitimately come back reversed
// relative to its predecessor; the merger detects this through the shared
// overlap and re-orients before appending. The overlap markers from the
// earlier batch are authoritative; the later batch contributes only its
// suffix. The reported log-likelihood is the sum over batches - an
// approximation, since the batches were fitted independently, not one
// joint multipoint likelihood.
package batch

import (
	"fmt"

	"github.com/mkruijt/linkmap/pkg/errors"
)

// Batch is a contiguous half-open index range into a marker sequence,
// with the overlap length shared with its predecessor (0 for the first).
type Batch struct {
	Start, End int
	Overlap    int
}

// Size returns the number of markers the batch covers.
func (b Batch) Size() int { return b.End - b.Start }

// String formats the batch range for logs and errors.
func (b Batch) String() string {
	return fmt.Sprintf("[%d,%d)", b.Start, b.End)
}

// PartitionOptions parameterizes Partition. See the package docs for the
// stride/overlap/tolerance model.
type PartitionOptions struct {
	// Size is the target stride: markers a batch contributes beyond the
	// carried overlap.
	Size int
	// Overlap is the number of markers shared with the previous batch.
	Overlap int
	// Tolerance is how far the effective stride may move from Size.
	Tolerance int
}

// Partition splits a sequence of length n into overlapping batches.
//
// The result covers [0, n) with no gaps; consecutive batches overlap by
// exactly Overlap markers, except the final batch, which is truncated at
// n and may share fewer trailing markers. Every feasibility violation is
// reported before any batch work starts:
//   - Overlap must be positive and smaller than the smallest allowed
//     stride (Size - Tolerance), or batches stop making progress;
//   - n must exceed Size + Overlap, otherwise there is nothing to
//     partition and the caller should map the sequence directly.
func Partition(n int, opts PartitionOptions) ([]Batch, error) {
	s, o, w := opts.Size, opts.Overlap, opts.Tolerance
	if n <= 0 {
		return nil, errors.New(errors.ErrCodePartition, "sequence length %d", n)
	}
	if s <= 0 || o <= 0 || w < 0 {
		return nil, errors.New(errors.ErrCodePartition,
			"invalid parameters: size=%d overlap=%d tolerance=%d", s, o, w)
	}
	if o >= s-w {
		return nil, errors.New(errors.ErrCodePartition,
			"overlap %d must be smaller than the minimum stride %d", o, s-w)
	}
	if n <= s+o {
		return nil, errors.New(errors.ErrCodePartition,
			"%d markers fit in a single batch of size %d plus overlap %d; batching is pointless", n, s, o)
	}

	stride, ok := bestStride(n, s, o, w)
	if !ok {
		return nil, errors.New(errors.ErrCodePartition,
			"no stride in [%d,%d] yields a valid partition of %d markers", s-w, s+w, n)
	}

	var batches []Batch
	for start := 0; start < n; start += stride {
		end := min(start+stride+o, n)
		b := Batch{Start: start, End: end, Overlap: o}
		if start == 0 {
			b.Overlap = 0
		} else if prev := batches[len(batches)-1]; prev.End-start < o {
			b.Overlap = prev.End - start
		}
		batches = append(batches, b)
		if end == n {
			break
		}
	}
	return batches, nil
}

// bestStride searches the tolerance window for the stride minimizing the
// batch count, preferring the stride closest to the target and, on equal
// distance, the smaller one (more overlap retained at the tail).
func bestStride(n, s, o, w int) (int, bool) {
	best, bestCount := 0, -1
	for d := 0; d <= w; d++ {
		for _, a := range []int{s - d, s + d} {
			if a <= o || a <= 0 {
				continue
			}
			// Batch k covers [k*a, k*a+a+o) capped at n, so generation
			// stops at the smallest count with count*a >= n-o.
			count := (n - o + a - 1) / a
			if count < 2 {
				continue
			}
			// The last batch must keep at least one marker beyond the
			// carried overlap.
			last := n - (count-1)*a
			if last <= 0 {
				continue
			}
			if bestCount < 0 || count < bestCount {
				best, bestCount = a, count
			}
		}
	}
	return best, bestCount > 0
}
