package fieldline

import (
	"math"
	"testing"

	"github.com/sballin/signal-tools/internal/models"
)

// fillFrame creates a test frame with values generated per pixel
func fillFrame(height, width int, fn func(y, x int) float64) *models.Frame {
	f := models.NewFrame(height, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.Set(y, x, fn(y, x))
		}
	}
	return f
}

func constFrame(height, width int, v float64) *models.Frame {
	return fillFrame(height, width, func(y, x int) float64 { return v })
}

func TestNewLibraryLengthMismatch(t *testing.T) {
	images := []*models.Frame{constFrame(4, 4, 1)}
	if _, err := NewLibrary(images, []float64{0.5, 0.6}, []float64{-1.0}); err == nil {
		t.Error("Expected error for mismatched coordinate lengths, got nil")
	}
}

func TestGeometryShape(t *testing.T) {
	testCases := []struct {
		name   string
		n      int
		height int
		width  int
	}{
		{"single element", 1, 8, 8},
		{"several elements", 5, 8, 8},
		{"non-square frames", 3, 6, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			images := make([]*models.Frame, tc.n)
			r := make([]float64, tc.n)
			z := make([]float64, tc.n)
			for i := range images {
				images[i] = constFrame(tc.height, tc.width, float64(i+1))
				r[i] = 0.5 + 0.01*float64(i)
				z[i] = -1.2 + 0.01*float64(i)
			}

			lib, err := NewLibrary(images, r, z)
			if err != nil {
				t.Fatalf("NewLibrary failed: %v", err)
			}
			geom, err := lib.Geometry()
			if err != nil {
				t.Fatalf("Geometry failed: %v", err)
			}

			rows, cols := geom.Operator().Dims()
			if rows != tc.height*tc.width {
				t.Errorf("Expected %d operator rows, got %d", tc.height*tc.width, rows)
			}
			if cols != tc.n {
				t.Errorf("Expected %d operator columns, got %d", tc.n, cols)
			}

			// Column i must be basis image i flattened row-major
			for i := 0; i < tc.n; i++ {
				for p := 0; p < rows; p++ {
					if got := geom.Operator().At(p, i); got != float64(i+1) {
						t.Fatalf("Operator[%d,%d] = %v, want %v", p, i, got, float64(i+1))
					}
				}
			}
		})
	}
}

func TestGeometryShapeMismatch(t *testing.T) {
	images := []*models.Frame{
		constFrame(8, 8, 1),
		constFrame(8, 6, 2),
	}
	lib, err := NewLibrary(images, []float64{0.5, 0.6}, []float64{-1.0, -1.1})
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	_, err = lib.Geometry()
	if err == nil {
		t.Fatal("Expected error for inconsistent basis resolutions, got nil")
	}
	if !IsShapeMismatch(err) {
		t.Errorf("Expected ShapeMismatchError, got %T: %v", err, err)
	}
}

func TestEmptyLibrary(t *testing.T) {
	lib, err := NewLibrary(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	if _, err := lib.Geometry(); !IsEmptyLibrary(err) {
		t.Errorf("Geometry: expected EmptyLibraryError, got %v", err)
	}
	if _, err := lib.CoordinateBounds(); !IsEmptyLibrary(err) {
		t.Errorf("CoordinateBounds: expected EmptyLibraryError, got %v", err)
	}
}

func TestCoordinateBounds(t *testing.T) {
	images := []*models.Frame{
		constFrame(4, 4, 1),
		constFrame(4, 4, 2),
		constFrame(4, 4, 3),
	}
	lib, err := NewLibrary(images, []float64{0.55, 0.48, 0.61}, []float64{-1.3, -1.1, -1.25})
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	bounds, err := lib.CoordinateBounds()
	if err != nil {
		t.Fatalf("CoordinateBounds failed: %v", err)
	}

	want := models.Bounds{MinR: 0.48, MaxR: 0.61, MinZ: -1.3, MaxZ: -1.1}
	if bounds != want {
		t.Errorf("Expected bounds %+v, got %+v", want, bounds)
	}
}

func TestGeometryCached(t *testing.T) {
	images := []*models.Frame{constFrame(4, 4, 1)}
	lib, err := NewLibrary(images, []float64{0.5}, []float64{-1.0})
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	first, err := lib.Geometry()
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}
	second, err := lib.Geometry()
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}
	if first != second {
		t.Error("Expected the cached operator on repeated calls")
	}
}

func TestProject(t *testing.T) {
	// Two orthogonal basis images: left half and right half lit
	left := fillFrame(2, 4, func(y, x int) float64 {
		if x < 2 {
			return 1
		}
		return 0
	})
	right := fillFrame(2, 4, func(y, x int) float64 {
		if x >= 2 {
			return 1
		}
		return 0
	})

	lib, err := NewLibrary([]*models.Frame{left, right}, []float64{0.5, 0.6}, []float64{-1.0, -1.1})
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	geom, err := lib.Geometry()
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}

	frame, err := geom.Project([]float64{2, 3})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if frame.Height != 2 || frame.Width != 4 {
		t.Fatalf("Expected 2x4 projection, got %dx%d", frame.Height, frame.Width)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			want := 2.0
			if x >= 2 {
				want = 3.0
			}
			if got := frame.At(y, x); math.Abs(got-want) > 1e-12 {
				t.Errorf("Projection at (%d,%d) = %v, want %v", y, x, got, want)
			}
		}
	}

	if _, err := geom.Project([]float64{1}); err == nil {
		t.Error("Expected error for wrong weight vector length, got nil")
	}
}

func TestCheckFrame(t *testing.T) {
	lib, err := NewLibrary([]*models.Frame{constFrame(8, 8, 1)}, []float64{0.5}, []float64{-1.0})
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	geom, err := lib.Geometry()
	if err != nil {
		t.Fatalf("Geometry failed: %v", err)
	}

	if err := geom.CheckFrame(constFrame(8, 8, 0)); err != nil {
		t.Errorf("Expected matching frame to pass, got %v", err)
	}
	err = geom.CheckFrame(constFrame(4, 8, 0))
	if !IsShapeMismatch(err) {
		t.Errorf("Expected ShapeMismatchError, got %v", err)
	}
}
