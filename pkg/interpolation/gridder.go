// Package interpolation spreads scattered per-field-line values onto
// a regular (R, Z) grid for display.
//
// The interpolation is piecewise linear over the Delaunay
// triangulation of the coordinate points. Both the triangulation and
// the barycentric weights of every output grid cell are computed once
// at construction, so regridding a new value vector each frame costs
// one weighted sum per cell.
package interpolation

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/sballin/signal-tools/internal/models"
)

// DefaultGridSize is the default output resolution along each axis
const DefaultGridSize = 100

// cell holds the precomputed interpolation stencil for one grid
// node: three point indices and their barycentric weights. An index
// of -1 marks a node outside the convex hull.
type cell struct {
	i0, i1, i2 int
	w0, w1, w2 float64
}

// Gridder interpolates value vectors onto a fixed (R, Z) grid. It is
// built once per basis library and reused for every frame.
type Gridder struct {
	r, z   []float64
	nr, nz int
	bounds models.Bounds

	gridR, gridZ []float64
	cells        []cell
}

// Option configures a Gridder
type Option func(*Gridder)

// WithResolution sets the output grid resolution. Both axes must be
// at least 2.
func WithResolution(nr, nz int) Option {
	return func(g *Gridder) {
		g.nr = nr
		g.nz = nz
	}
}

// WithBounds fixes the output grid extent instead of deriving it
// from the coordinate points. Sessions replaying several segments
// use this to keep the grid stable across basis library changes.
func WithBounds(b models.Bounds) Option {
	return func(g *Gridder) {
		g.bounds = b
	}
}

// NewGridder triangulates the coordinate points and precomputes the
// interpolation stencil for every grid node. It fails with a
// DegenerateError when the points cannot form a triangulation.
func NewGridder(r, z []float64, opts ...Option) (*Gridder, error) {
	if len(r) != len(z) {
		return nil, fmt.Errorf("interpolation: %d R coordinates with %d Z coordinates", len(r), len(z))
	}
	if len(r) < 3 {
		return nil, &DegenerateError{Points: len(r), Reason: "need at least 3 points"}
	}

	g := &Gridder{
		r:      append([]float64(nil), r...),
		z:      append([]float64(nil), z...),
		nr:     DefaultGridSize,
		nz:     DefaultGridSize,
		bounds: pointBounds(r, z),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.nr < 2 || g.nz < 2 {
		return nil, fmt.Errorf("interpolation: grid resolution %dx%d too small", g.nr, g.nz)
	}

	points := make([]delaunay.Point, len(r))
	for i := range r {
		points[i] = delaunay.Point{X: r[i], Y: z[i]}
	}
	tri, err := delaunay.Triangulate(points)
	if err != nil {
		return nil, &DegenerateError{Points: len(r), Reason: err.Error()}
	}
	if len(tri.Triangles) == 0 {
		return nil, &DegenerateError{Points: len(r), Reason: "all points collinear"}
	}

	g.gridR = axis(g.bounds.MinR, g.bounds.MaxR, g.nr)
	g.gridZ = axis(g.bounds.MinZ, g.bounds.MaxZ, g.nz)
	g.precompute(tri)
	return g, nil
}

// axis returns n evenly spaced coordinates covering [lo, hi]
func axis(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

func pointBounds(r, z []float64) models.Bounds {
	b := models.Bounds{MinR: r[0], MaxR: r[0], MinZ: z[0], MaxZ: z[0]}
	for i := 1; i < len(r); i++ {
		b.MinR = math.Min(b.MinR, r[i])
		b.MaxR = math.Max(b.MaxR, r[i])
		b.MinZ = math.Min(b.MinZ, z[i])
		b.MaxZ = math.Max(b.MaxZ, z[i])
	}
	return b
}

// precompute rasterizes every triangle over the grid nodes inside
// its bounding box, storing the first containing triangle and its
// barycentric weights per node
func (g *Gridder) precompute(tri *delaunay.Triangulation) {
	g.cells = make([]cell, g.nr*g.nz)
	for i := range g.cells {
		g.cells[i] = cell{i0: -1, i1: -1, i2: -1}
	}

	stepR := (g.bounds.MaxR - g.bounds.MinR) / float64(g.nr-1)
	stepZ := (g.bounds.MaxZ - g.bounds.MinZ) / float64(g.nz-1)

	for t := 0; t < len(tri.Triangles); t += 3 {
		i0 := tri.Triangles[t]
		i1 := tri.Triangles[t+1]
		i2 := tri.Triangles[t+2]
		p0 := tri.Points[i0]
		p1 := tri.Points[i1]
		p2 := tri.Points[i2]

		minR := math.Min(p0.X, math.Min(p1.X, p2.X))
		maxR := math.Max(p0.X, math.Max(p1.X, p2.X))
		minZ := math.Min(p0.Y, math.Min(p1.Y, p2.Y))
		maxZ := math.Max(p0.Y, math.Max(p1.Y, p2.Y))

		irLo := clampIndex(int(math.Floor((minR-g.bounds.MinR)/stepR))-1, g.nr)
		irHi := clampIndex(int(math.Ceil((maxR-g.bounds.MinR)/stepR))+1, g.nr)
		izLo := clampIndex(int(math.Floor((minZ-g.bounds.MinZ)/stepZ))-1, g.nz)
		izHi := clampIndex(int(math.Ceil((maxZ-g.bounds.MinZ)/stepZ))+1, g.nz)

		for iz := izLo; iz <= izHi; iz++ {
			for ir := irLo; ir <= irHi; ir++ {
				idx := iz*g.nr + ir
				if g.cells[idx].i0 >= 0 {
					continue
				}
				w0, w1, w2, ok := barycentric(p0, p1, p2, g.gridR[ir], g.gridZ[iz])
				if ok {
					g.cells[idx] = cell{i0: i0, i1: i1, i2: i2, w0: w0, w1: w1, w2: w2}
				}
			}
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// barycentric returns the weights of (x, y) with respect to the
// triangle (a, b, c), and whether the point lies inside it. A small
// tolerance keeps grid nodes on shared triangle edges inside.
func barycentric(a, b, c delaunay.Point, x, y float64) (w0, w1, w2 float64, inside bool) {
	const edgeTol = 1e-9

	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if math.Abs(denom) < 1e-300 {
		return 0, 0, 0, false
	}
	w0 = ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	w1 = ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	w2 = 1 - w0 - w1
	inside = w0 >= -edgeTol && w1 >= -edgeTol && w2 >= -edgeTol
	return w0, w1, w2, inside
}

// NumPoints returns the number of coordinate points
func (g *Gridder) NumPoints() int {
	return len(g.r)
}

// Resolution returns the output grid resolution (columns, rows)
func (g *Gridder) Resolution() (nr, nz int) {
	return g.nr, g.nz
}

// Bounds returns the output grid extent
func (g *Gridder) Bounds() models.Bounds {
	return g.bounds
}

// Grid interpolates one value vector onto the grid. The returned
// field is freshly allocated; nodes outside the convex hull of the
// coordinate points hold NaN.
func (g *Gridder) Grid(values []float64) (*models.SpatialField, error) {
	if len(values) != len(g.r) {
		return nil, fmt.Errorf("interpolation: %d values for %d coordinate points", len(values), len(g.r))
	}

	out := make([]float64, len(g.cells))
	for i, c := range g.cells {
		if c.i0 < 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = c.w0*values[c.i0] + c.w1*values[c.i1] + c.w2*values[c.i2]
	}

	return &models.SpatialField{
		R:      append([]float64(nil), g.gridR...),
		Z:      append([]float64(nil), g.gridZ...),
		Values: out,
	}, nil
}
