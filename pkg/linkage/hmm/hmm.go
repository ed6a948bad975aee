// Package hmm implements the bundled multipoint likelihood estimator: a
// hidden-Markov model over meiotic inheritance states with EM
// re-estimation of interval recombination fractions.
//
// # Model
//
// For an F1 outcross, each progeny individual inherits one of two
// homologs from each parent at every locus, giving four hidden states
// per locus (parent-1 homolog x parent-2 homolog). Moving along the
// chromosome, each parental origin switches with the interval's
// recombination fraction, so the joint transition kernel is the product
// of two symmetric two-state kernels.
//
// Linkage phases enter through the emissions: a repulsion phase in a
// parent exchanges which homolog carries which allele from that interval
// onward. The implementation folds the phase vector into a cumulative
// per-locus label flip instead of reindexing the state space.
//
// Emissions depend on the marker's segregation type (A, B, C, D1, D2):
// fully informative markers distinguish all four states, dominant and
// one-parent markers collapse several states into one observable class,
// and missing observations emit uniformly.
//
// # Estimation
//
// Estimate runs forward-backward per individual (with per-locus
// scaling), accumulates expected recombination events per interval over
// both parents, and iterates until the largest recombination-fraction
// update falls below the requested tolerance or the iteration budget is
// spent. The log-likelihood is the sum of the scaling-factor logs. The
// Converged flag reports whether the tolerance was met; running out of
// iterations is not an error.
package hmm

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

const (
	nStates = 4

	// DefaultMaxIter bounds the EM iterations per Estimate call.
	DefaultMaxIter = 50

	// rfFloor and rfCeil keep fractions strictly inside (0, 0.5) so the
	// transition kernel never degenerates.
	rfFloor = 1e-6
	rfCeil  = 0.5 - 1e-6

	// defaultSeedRF starts intervals without a usable seed.
	defaultSeedRF = 0.1
)

// Estimator is the HMM-based multipoint estimator. The zero value is
// ready to use. It is stateless between calls and safe for concurrent
// use.
type Estimator struct {
	// MaxIter overrides the EM iteration budget; zero means
	// DefaultMaxIter.
	MaxIter int
}

var _ linkage.Estimator = (*Estimator)(nil)

// Estimate implements linkage.Estimator.
func (e *Estimator) Estimate(ctx context.Context, data *linkage.Dataset, req linkage.EstimateRequest) (linkage.EstimateResult, error) {
	if err := validate(data, req); err != nil {
		return linkage.EstimateResult{}, err
	}

	nInt := len(req.Order) - 1
	rf := seedRF(req.RF, nInt)
	flips1, flips2 := phaseFlips(req.Phases)
	em := emissions(data, req.Order, flips1, flips2)

	maxIter := e.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	tol := req.Tol
	if tol <= 0 {
		tol = 1e-5
	}

	var logLik float64
	converged := false
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return linkage.EstimateResult{}, err
		}

		next := make([]float64, nInt)
		ll := 0.0
		for ind := 0; ind < data.NIndividuals; ind++ {
			ll += accumulate(em[ind], rf, next)
		}
		// Expected recombination events over both parents, normalized
		// per meiosis.
		for k := range next {
			next[k] = clampRF(next[k] / (2 * float64(data.NIndividuals)))
		}

		delta := 0.0
		for k := range rf {
			delta = math.Max(delta, math.Abs(next[k]-rf[k]))
		}
		rf = next
		logLik = ll
		if delta < tol {
			converged = true
			break
		}
	}

	return linkage.EstimateResult{RF: rf, LogLik: logLik, Converged: converged}, nil
}

func validate(data *linkage.Dataset, req linkage.EstimateRequest) error {
	if data == nil {
		return errors.New(errors.ErrCodeInvalidDataset, "nil dataset")
	}
	if err := data.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDataset, err, "estimating")
	}
	if len(req.Order) < 2 {
		return errors.New(errors.ErrCodeInvalidSequence, "order needs at least 2 markers, got %d", len(req.Order))
	}
	if len(req.Phases) != len(req.Order)-1 {
		return errors.New(errors.ErrCodeInvalidSequence,
			"%d markers need %d phases, got %d", len(req.Order), len(req.Order)-1, len(req.Phases))
	}
	for _, m := range req.Order {
		if m < 0 || m >= len(data.Markers) {
			return errors.New(errors.ErrCodeInvalidSequence, "marker index %d out of range", m)
		}
	}
	return nil
}

func seedRF(seed []float64, n int) []float64 {
	rf := make([]float64, n)
	for i := range rf {
		rf[i] = defaultSeedRF
		if i < len(seed) && !math.IsNaN(seed[i]) {
			rf[i] = clampRF(seed[i])
		}
	}
	return rf
}

func clampRF(r float64) float64 {
	if math.IsNaN(r) {
		return defaultSeedRF
	}
	return math.Min(math.Max(r, rfFloor), rfCeil)
}

// phaseFlips converts the phase vector into cumulative per-locus label
// flips for each parent. A repulsion phase in a parent exchanges that
// parent's homolog labels from the next locus on; Unknown is treated as
// coupling/coupling.
func phaseFlips(phases []linkage.Phase) (f1, f2 []bool) {
	f1 = make([]bool, len(phases)+1)
	f2 = make([]bool, len(phases)+1)
	for k, p := range phases {
		r1, r2 := false, false
		switch p {
		case linkage.PhaseCR:
			r2 = true
		case linkage.PhaseRC:
			r1 = true
		case linkage.PhaseRR:
			r1, r2 = true, true
		}
		f1[k+1] = f1[k] != r1
		f2[k+1] = f2[k] != r2
	}
	return f1, f2
}

// emissions precomputes the per-individual, per-locus emission vector
// over the four states, with phase flips folded in. States are indexed
// a*2+b where a and b are the parental homolog labels (0 or 1).
func emissions(data *linkage.Dataset, order []int, f1, f2 []bool) [][][nStates]float64 {
	em := make([][][nStates]float64, data.NIndividuals)
	for ind := range em {
		em[ind] = make([][nStates]float64, len(order))
		for k, mi := range order {
			m := data.Markers[mi]
			geno := m.Genos[ind]
			for s := 0; s < nStates; s++ {
				a, b := s>>1, s&1
				if f1[k] {
					a = 1 - a
				}
				if f2[k] {
					b = 1 - b
				}
				em[ind][k][s] = emit(m.Seg, geno, a, b)
			}
		}
	}
	return em
}

// emit returns P(observed genotype class | effective state) for one
// marker. a is the parent-1 homolog (0 or 1), b the parent-2 homolog.
func emit(seg linkage.SegType, geno, a, b int) float64 {
	if geno == linkage.GenoMissing {
		return 1
	}
	switch seg {
	case linkage.SegA:
		// ab x cd: four distinguishable classes ac, ad, bc, bd.
		if geno-1 == a*2+b {
			return 1
		}
	case linkage.SegB:
		// ab x ab codominant: aa, ab, bb.
		switch geno {
		case 1:
			if a == 0 && b == 0 {
				return 1
			}
		case 2:
			if a != b {
				return 1
			}
		case 3:
			if a == 1 && b == 1 {
				return 1
			}
		}
	case linkage.SegC:
		// ab x ab dominant: a_ vs bb.
		bb := a == 1 && b == 1
		if (geno == 1) != bb {
			return 1
		}
	case linkage.SegD1:
		// ab x aa: parent 1 informative only.
		if geno-1 == a {
			return 1
		}
	case linkage.SegD2:
		// aa x ab: parent 2 informative only.
		if geno-1 == b {
			return 1
		}
	}
	return 0
}

// transition fills t with the joint two-parent kernel for recombination
// fraction r: both origins kept (1-r)^2, one switched r(1-r), both r^2.
func transition(r float64, t *[nStates][nStates]float64) {
	stay := 1 - r
	for s := 0; s < nStates; s++ {
		for q := 0; q < nStates; q++ {
			p := 1.0
			if s>>1 == q>>1 {
				p *= stay
			} else {
				p *= r
			}
			if s&1 == q&1 {
				p *= stay
			} else {
				p *= r
			}
			t[s][q] = p
		}
	}
}

// accumulate runs one scaled forward-backward pass for a single
// individual, adds its expected recombination events per interval into
// events, and returns the individual's log-likelihood.
func accumulate(em [][nStates]float64, rf []float64, events []float64) float64 {
	L := len(em)
	alpha := make([][nStates]float64, L)
	beta := make([][nStates]float64, L)
	scale := make([]float64, L)

	var t [nStates][nStates]float64

	// Forward, scaled.
	for s := 0; s < nStates; s++ {
		alpha[0][s] = em[0][s] / nStates
	}
	scale[0] = norm(&alpha[0])
	for k := 1; k < L; k++ {
		transition(rf[k-1], &t)
		for q := 0; q < nStates; q++ {
			sum := 0.0
			for s := 0; s < nStates; s++ {
				sum += alpha[k-1][s] * t[s][q]
			}
			alpha[k][q] = sum * em[k][q]
		}
		scale[k] = norm(&alpha[k])
	}

	// Backward, reusing the forward scales.
	for s := 0; s < nStates; s++ {
		beta[L-1][s] = 1
	}
	for k := L - 2; k >= 0; k-- {
		transition(rf[k], &t)
		for s := 0; s < nStates; s++ {
			sum := 0.0
			for q := 0; q < nStates; q++ {
				sum += t[s][q] * em[k+1][q] * beta[k+1][q]
			}
			beta[k][s] = sum / scale[k+1]
		}
	}

	// Expected recombination events per interval: each pairwise
	// posterior contributes its parental origin switches (0, 1, or 2).
	for k := 0; k < L-1; k++ {
		transition(rf[k], &t)
		total := 0.0
		weighted := 0.0
		for s := 0; s < nStates; s++ {
			for q := 0; q < nStates; q++ {
				xi := alpha[k][s] * t[s][q] * em[k+1][q] * beta[k+1][q]
				total += xi
				switches := 0
				if s>>1 != q>>1 {
					switches++
				}
				if s&1 != q&1 {
					switches++
				}
				weighted += xi * float64(switches)
			}
		}
		if total > 0 {
			events[k] += weighted / total
		}
	}

	ll := 0.0
	for _, c := range scale {
		if c > 0 {
			ll += math.Log(c)
		} else {
			return math.Inf(-1)
		}
	}
	return ll
}

// norm rescales v to sum to one and returns the original sum.
func norm(v *[nStates]float64) float64 {
	sum := floats.Sum(v[:])
	if sum > 0 {
		floats.Scale(1/sum, v[:])
	}
	return sum
}
