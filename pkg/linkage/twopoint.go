package linkage

// TwoPointTable exposes the results of a pairwise (two-point) analysis.
// The multipoint search consults it for one thing only: the candidate
// phases of an adjacent marker pair, used to seed the per-step evaluation.
// The final phase decision is always made against the multipoint
// likelihood, never against these pairwise scores.
//
// Implementations must return candidates in a stable enumeration order:
// the search breaks likelihood ties by first occurrence, so the order is
// part of the contract.
type TwoPointTable interface {
	// Phases returns up to four phase candidates for the unordered marker
	// pair (a, b). An empty result means the pair carries no linkage
	// signal; the caller decides how to proceed.
	Phases(a, b int) []PhaseCandidate
}

// PairKey is a canonical (low, high) marker index pair, usable as a map
// key for two-point storage.
type PairKey struct{ A, B int }

// NewPairKey returns the canonical key for the unordered pair (a, b).
func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// MemTable is an in-memory TwoPointTable backed by a map. It is the
// concrete table produced by the JSON importer and by tests.
type MemTable struct {
	entries map[PairKey][]PhaseCandidate
}

// NewMemTable returns an empty in-memory two-point table.
func NewMemTable() *MemTable {
	return &MemTable{entries: make(map[PairKey][]PhaseCandidate)}
}

// Put stores the candidate list for the unordered pair (a, b), replacing
// any previous entry. The slice is kept as passed; callers must not
// mutate it afterwards.
func (t *MemTable) Put(a, b int, cands []PhaseCandidate) {
	t.entries[NewPairKey(a, b)] = cands
}

// Phases implements TwoPointTable.
func (t *MemTable) Phases(a, b int) []PhaseCandidate {
	return t.entries[NewPairKey(a, b)]
}

// Len returns the number of stored pairs.
func (t *MemTable) Len() int { return len(t.entries) }
