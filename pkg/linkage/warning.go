package linkage

import "fmt"

// WarningKind classifies the non-fatal conditions a map construction can
// surface. Warnings annotate the result; they never abort the search.
type WarningKind int8

const (
	// WarnConvergence: the multipoint estimator ran out of its tolerance
	// budget; the best estimate found was kept.
	WarnConvergence WarningKind = iota
	// WarnPhaseUndetermined: no phase candidate at a step produced a
	// finite likelihood; the interval keeps the Unknown sentinel.
	WarnPhaseUndetermined
)

// Warning records a non-fatal condition, tagged with the marker (dataset
// index) and the induction step it occurred at.
type Warning struct {
	Kind   WarningKind
	Marker int
	Step   int
	Detail string
}

// String formats the warning for logs.
func (w Warning) String() string {
	switch w.Kind {
	case WarnConvergence:
		return fmt.Sprintf("estimator did not converge at step %d (marker %d): %s", w.Step, w.Marker, w.Detail)
	case WarnPhaseUndetermined:
		return fmt.Sprintf("phase undetermined at step %d (marker %d): %s", w.Step, w.Marker, w.Detail)
	}
	return w.Detail
}
