// Package inversion recovers per-field-line emissivity weights from
// an observed camera frame using a cached geometry operator.
//
// Two algorithms are provided with deliberately different output
// semantics. LeastSquares recombines every basis element into a
// weighted reconstruction with a residual; Correlator only proposes
// the best-matching single basis element and produces similarity
// scores instead of weights. Engines cache derived matrices across
// frames and are meant to be owned by exactly one session; they are
// not safe for concurrent use.
package inversion

import (
	"github.com/sballin/signal-tools/internal/models"
)

// Inverter runs one inversion algorithm against observed frames.
// Implementations keep the geometry operator (and any derived
// matrices) cached between calls, so repeated per-frame use is cheap.
type Inverter interface {
	Invert(frame *models.Frame) (*Result, error)
}

// Result holds the per-frame output of an inversion. Weights and
// Residual are set by the least-squares algorithm; Scores and Ranked
// by correlation matching. Reconstructed is set by both.
type Result struct {
	// Weights is the non-negative emissivity per basis element
	Weights []float64

	// Scores is the correlation score per basis element
	Scores []float64

	// Ranked lists basis indices from best to worst score
	Ranked []int

	// Reconstructed is the predicted camera image: the weighted
	// recombination for least squares, the chosen basis image for
	// correlation matching
	Reconstructed *models.Frame

	// Residual is observed minus reconstructed, signed. Only the
	// least-squares algorithm produces one.
	Residual *models.Frame
}

// Values returns the per-basis-element scalar to spread on the
// spatial grid: weights when present, otherwise correlation scores
func (r *Result) Values() []float64 {
	if r.Weights != nil {
		return r.Weights
	}
	return r.Scores
}
