// Package pkg provides the core libraries for linkmap.
//
// # Overview
//
// linkmap orders genetic markers of an outcrossing population into a
// linkage map: a marker order with a linkage phase and a recombination
// fraction per interval, plus cumulative map distances. The pkg
// directory is organized into a domain core and supporting
// infrastructure:
//
//  1. [linkage] - Domain types and algorithms (sequences, phases,
//     two-point tables, search, batching, ripple, the HMM estimator)
//  2. [pipeline] - Orchestration (seed → map → summarize) shared by the
//     CLI and the HTTP API
//  3. [cache], [session], [io] - Infrastructure (estimate memoization,
//     stored results, the JSON dataset and map formats)
//
// # Architecture
//
// The typical data flow:
//
//	dataset JSON (genotypes + two-point table)
//	         ↓
//	    [linkage/seed] (initial order from two-point linkage)
//	         ↓
//	    [linkage/batch] (partition long groups, map concurrently, stitch)
//	         ↓
//	    [linkage/search] / [linkage/ripple] (phase search, refinement)
//	         ↓
//	    map JSON (order, phases, rf, centimorgan distances)
//
// Every candidate order is scored by the [linkage.Estimator] interface;
// [linkage/hmm] carries the bundled hidden-Markov implementation and
// [cache] memoizes its results across runs.
//
// # Main Packages
//
// [linkage] - The domain vocabulary: datasets, segregation types,
// phases, sequences, two-point tables, map functions, and the global
// map with its summary.
//
// [linkage/search] - Multipoint phase search over an order, seeded from
// the two-point table.
//
// [linkage/batch] - Overlapping batch partitioning for long linkage
// groups and the merge that stitches mapped batches back together.
//
// [linkage/ripple] - Sliding-window order refinement around a mapped
// sequence.
//
// [linkage/hmm] - The bundled multipoint estimator: scaled
// forward-backward over four meiotic states with EM re-estimation.
//
// [pipeline] - End-to-end runs with defaults, timing, and summaries.
//
// [cache] - Estimate memoization keyed by dataset content, order,
// phases, and tolerance. File and Redis backends.
//
// [session] - Stored map results. File and MongoDB backends.
//
// [io] - The JSON dataset input and map output formats.
//
// [linkage]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/linkage
// [linkage/seed]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/linkage/seed
// [linkage/search]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/linkage/search
// [linkage/batch]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/linkage/batch
// [linkage/ripple]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/linkage/ripple
// [linkage/hmm]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/linkage/hmm
// [pipeline]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/cache
// [session]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/session
// [io]: https://pkg.go.dev/github.com/mkruijt/linkmap/pkg/io
package pkg
