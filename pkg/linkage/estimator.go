package linkage

import "context"

// EstimateRequest carries one multipoint evaluation: a marker order, a
// resolved phase per interval, and the EM convergence tolerance.
type EstimateRequest struct {
	// Order is the marker order to evaluate, as dataset indices.
	Order []int
	// Phases has one resolved phase per adjacent pair (len(Order)-1).
	Phases []Phase
	// RF optionally seeds the interval recombination fractions; an empty
	// or NaN-filled slice means "start from the default".
	RF []float64
	// Tol is the numerical tolerance budget. Exceeding it must not hang
	// the estimator; it returns its best estimate with Converged=false.
	Tol float64
}

// EstimateResult is the outcome of one multipoint evaluation.
type EstimateResult struct {
	// RF holds the refined recombination fraction per interval.
	RF []float64
	// LogLik is the multipoint log-likelihood of the order and phases.
	LogLik float64
	// Converged is false when the tolerance budget ran out; the values
	// are then the best found, not final.
	Converged bool
}

// Estimator is the multipoint likelihood collaborator: a hidden-Markov
// re-estimation routine over meiotic states. The map-construction core
// treats it as an opaque, swappable strategy; package hmm has the bundled
// implementation.
//
// Implementations must be safe for concurrent use: the search fans out
// independent evaluations against read-only shared inputs.
type Estimator interface {
	Estimate(ctx context.Context, data *Dataset, req EstimateRequest) (EstimateResult, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(ctx context.Context, data *Dataset, req EstimateRequest) (EstimateResult, error)

// Estimate implements Estimator.
func (f EstimatorFunc) Estimate(ctx context.Context, data *Dataset, req EstimateRequest) (EstimateResult, error) {
	return f(ctx, data, req)
}
