package linkage

// Phase is the linkage phase between two adjacent markers in an outcross.
//
// Each parent of an F1 outcross carries two marker alleles per locus; the
// phase records, for both parents, whether the alleles of the two loci sit
// on the same homolog (coupling) or on opposite homologs (repulsion). Four
// combinations exist.
type Phase int8

const (
	// PhaseUnknown marks an interval whose phase has not been determined.
	PhaseUnknown Phase = iota
	// PhaseCC is coupling in both parents.
	PhaseCC
	// PhaseCR is coupling in parent 1, repulsion in parent 2.
	PhaseCR
	// PhaseRC is repulsion in parent 1, coupling in parent 2.
	PhaseRC
	// PhaseRR is repulsion in both parents.
	PhaseRR
)

// phaseNames is indexed by Phase.
var phaseNames = [...]string{"unknown", "CC", "CR", "RC", "RR"}

// String returns the conventional two-letter phase name, or "unknown".
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "invalid"
	}
	return phaseNames[p]
}

// Valid reports whether p is one of the four outcross phases or Unknown.
func (p Phase) Valid() bool {
	return p >= PhaseUnknown && p <= PhaseRR
}

// Reversed returns the phase of the same marker pair read in the opposite
// direction. Swapping the pair order swaps which locus is "first" on each
// homolog, which exchanges the two mixed phases and leaves the symmetric
// ones untouched.
func (p Phase) Reversed() Phase {
	switch p {
	case PhaseCR:
		return PhaseRC
	case PhaseRC:
		return PhaseCR
	default:
		return p
	}
}

// PhaseCandidate is one entry of a two-point lookup: a possible phase for
// a marker pair together with its pairwise recombination fraction estimate
// and LOD support.
type PhaseCandidate struct {
	Phase Phase
	RF    float64
	LOD   float64
}
