package fieldline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
)

// Geometry is the forward operator of the inversion: a (pixels x N)
// matrix whose column i is basis image i flattened row-major.
// Multiplying it by a weight vector predicts a camera image.
type Geometry struct {
	op     *mat.Dense
	height int
	width  int
}

func buildGeometry(images []*models.Frame) (*Geometry, error) {
	if len(images) == 0 {
		return nil, &EmptyLibraryError{}
	}
	height := images[0].Height
	width := images[0].Width
	op := mat.NewDense(height*width, len(images), nil)
	for i, img := range images {
		if img.Height != height || img.Width != width {
			return nil, &ShapeMismatchError{
				Subject:    fmt.Sprintf("basis image %d", i),
				WantHeight: height,
				WantWidth:  width,
				GotHeight:  img.Height,
				GotWidth:   img.Width,
			}
		}
		op.SetCol(i, img.Data)
	}
	return &Geometry{op: op, height: height, width: width}, nil
}

// NumBasis returns the number of basis elements (operator columns)
func (g *Geometry) NumBasis() int {
	_, n := g.op.Dims()
	return n
}

// Pixels returns the number of image pixels (operator rows)
func (g *Geometry) Pixels() int {
	return g.height * g.width
}

// FrameHeight returns the camera image height in pixels
func (g *Geometry) FrameHeight() int {
	return g.height
}

// FrameWidth returns the camera image width in pixels
func (g *Geometry) FrameWidth() int {
	return g.width
}

// Operator returns the underlying matrix. Callers must treat it as
// read-only; it is shared by every inversion of this library.
func (g *Geometry) Operator() *mat.Dense {
	return g.op
}

// CheckFrame verifies that an observed frame matches the operator's
// camera resolution, returning a ShapeMismatchError when it does not
func (g *Geometry) CheckFrame(f *models.Frame) error {
	if f.Height != g.height || f.Width != g.width {
		return &ShapeMismatchError{
			Subject:    "observed frame",
			WantHeight: g.height,
			WantWidth:  g.width,
			GotHeight:  f.Height,
			GotWidth:   f.Width,
		}
	}
	return nil
}

// Project computes the predicted camera image G*w for a weight
// vector, reshaped to the library's frame resolution
func (g *Geometry) Project(w []float64) (*models.Frame, error) {
	if len(w) != g.NumBasis() {
		return nil, fmt.Errorf("fieldline: weight vector length %d, want %d", len(w), g.NumBasis())
	}
	out := mat.NewVecDense(g.Pixels(), nil)
	out.MulVec(g.op, mat.NewVecDense(len(w), w))

	frame := models.NewFrame(g.height, g.width)
	for i := range frame.Data {
		frame.Data[i] = out.AtVec(i)
	}
	return frame, nil
}
