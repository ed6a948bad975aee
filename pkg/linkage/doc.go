// Package linkage defines the core data model for building genetic linkage
// maps in outcrossing populations.
//
// A linkage map assigns an order to molecular markers along a chromosome,
// a linkage phase to every adjacent marker pair, and a recombination
// fraction per interval, chosen to maximize a multipoint likelihood.
//
// # Data Model
//
// The central types are:
//
//   - [Sequence]: an ordered run of markers with per-interval phases and
//     recombination fractions. Sequences are immutable inputs to the
//     search algorithms; operations return fresh values.
//   - [Phase]: one of the four outcross linkage phases (CC, CR, RC, RR)
//     plus the Unknown sentinel.
//   - [TwoPointTable]: pairwise phase candidates used only to seed the
//     multipoint search, never to make the final phase decision.
//   - [Dataset]: the read-only genotype matrix the likelihood is
//     evaluated against.
//   - [GlobalMap]: the terminal artifact with cumulative genetic
//     distances.
//
// # Collaborators
//
// The multipoint likelihood itself is a numerical black box behind the
// [Estimator] interface: given an order, a phase vector, and a tolerance,
// it returns refined recombination fractions, a log-likelihood, and a
// convergence flag. Package hmm provides the bundled implementation;
// callers may substitute their own.
//
// The search, batch, and ripple subpackages contain the algorithms that
// operate on these types.
package linkage
