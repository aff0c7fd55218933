package inversion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/fieldline"
)

// LeastSquares inverts frames by regularized non-negative least
// squares: it solves
//
//	minimize ||G*w - f||  subject to  w >= 0
//
// with Tikhonov smoothing applied by stacking lambda*I below the
// geometry operator and zeros below the frame. The augmented
// operator is built once and reused for every frame; it is rebuilt
// only when the smoothing parameter changes.
type LeastSquares struct {
	geom      *fieldline.Geometry
	smoothing float64

	// aug is the smoothing-augmented operator, nil when smoothing
	// is zero and the raw operator is used directly
	aug *mat.Dense

	// rhs is the right-hand-side buffer reused across frames; the
	// trailing rows stay zero for the smoothing equations
	rhs []float64
}

// NewLeastSquares creates a least-squares engine for a geometry
// operator. The smoothing parameter must be non-negative; zero
// disables regularization entirely.
func NewLeastSquares(geom *fieldline.Geometry, smoothing float64) (*LeastSquares, error) {
	ls := &LeastSquares{geom: geom}
	if err := ls.SetSmoothing(smoothing); err != nil {
		return nil, err
	}
	return ls, nil
}

// Smoothing returns the current regularization strength
func (ls *LeastSquares) Smoothing() float64 {
	return ls.smoothing
}

// SetSmoothing changes the regularization strength and rebuilds the
// cached augmented operator
func (ls *LeastSquares) SetSmoothing(smoothing float64) error {
	if smoothing < 0 {
		return fmt.Errorf("inversion: smoothing parameter %v is negative", smoothing)
	}
	ls.smoothing = smoothing

	pixels := ls.geom.Pixels()
	n := ls.geom.NumBasis()
	if smoothing == 0 {
		ls.aug = nil
		ls.rhs = make([]float64, pixels)
		return nil
	}

	aug := mat.NewDense(pixels+n, n, nil)
	aug.Slice(0, pixels, 0, n).(*mat.Dense).Copy(ls.geom.Operator())
	for i := 0; i < n; i++ {
		aug.Set(pixels+i, i, smoothing)
	}
	ls.aug = aug
	ls.rhs = make([]float64, pixels+n)
	return nil
}

// Invert recovers non-negative emissivity weights for one frame and
// returns them with the reconstructed image and signed residual
func (ls *LeastSquares) Invert(frame *models.Frame) (*Result, error) {
	if err := ls.geom.CheckFrame(frame); err != nil {
		return nil, err
	}

	var op mat.Matrix = ls.geom.Operator()
	if ls.aug != nil {
		op = ls.aug
	}
	copy(ls.rhs[:ls.geom.Pixels()], frame.Data)

	weights, err := NNLS(op, ls.rhs)
	if err != nil {
		return nil, err
	}

	reconstructed, err := ls.geom.Project(weights)
	if err != nil {
		return nil, err
	}
	residual := frame.Clone()
	for i := range residual.Data {
		residual.Data[i] -= reconstructed.Data[i]
	}

	return &Result{
		Weights:       weights,
		Reconstructed: reconstructed,
		Residual:      residual,
	}, nil
}
