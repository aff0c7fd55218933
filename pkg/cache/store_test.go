package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
	"github.com/sballin/signal-tools/pkg/fieldline"
)

// testLibrary builds a small library of n distinct 2x2 basis images
func testLibrary(t *testing.T, n int, baseR, baseZ float64) *fieldline.Library {
	t.Helper()
	images := make([]*models.Frame, n)
	r := make([]float64, n)
	z := make([]float64, n)
	for i := range images {
		f := models.NewFrame(2, 2)
		for p := range f.Data {
			f.Data[p] = float64(i*10 + p)
		}
		images[i] = f
		r[i] = baseR + 0.01*float64(i)
		z[i] = baseZ - 0.01*float64(i)
	}
	lib, err := fieldline.NewLibrary(images, r, z)
	require.NoError(t, err)
	return lib
}

// testSegment builds a segment with the given frame count whose
// weight rows encode frame*100+column for traceability
func testSegment(t *testing.T, frames, n int, baseR, baseZ float64) *Segment {
	t.Helper()
	weights := mat.NewDense(frames, n, nil)
	for f := 0; f < frames; f++ {
		for c := 0; c < n; c++ {
			weights.Set(f, c, float64(f*100+c))
		}
	}
	seg, err := NewSegment(testLibrary(t, n, baseR, baseZ), weights)
	require.NoError(t, err)
	return seg
}

func TestResolve(t *testing.T) {
	store, err := NewStore([]*Segment{
		testSegment(t, 100, 3, 0.5, -1.1),
		testSegment(t, 50, 3, 0.5, -1.1),
		testSegment(t, 75, 3, 0.5, -1.1),
	})
	require.NoError(t, err)
	require.Equal(t, 225, store.NumFrames())
	require.Equal(t, 3, store.NumSegments())

	testCases := []struct {
		frame   int
		segment int
		offset  int
	}{
		{0, 0, 0},
		{99, 0, 99},
		{100, 1, 0},
		{120, 1, 20},
		{149, 1, 49},
		{150, 2, 0},
		{224, 2, 74},
	}
	for _, tc := range testCases {
		segment, offset, err := store.Resolve(tc.frame)
		require.NoError(t, err, "frame %d", tc.frame)
		assert.Equal(t, tc.segment, segment, "frame %d segment", tc.frame)
		assert.Equal(t, tc.offset, offset, "frame %d offset", tc.frame)
	}

	_, _, err = store.Resolve(225)
	assert.True(t, IsIndexOutOfRange(err), "expected IndexOutOfRangeError, got %v", err)
	_, _, err = store.Resolve(-1)
	assert.True(t, IsIndexOutOfRange(err), "expected IndexOutOfRangeError, got %v", err)
}

func TestFrameWeights(t *testing.T) {
	store, err := NewStore([]*Segment{
		testSegment(t, 100, 3, 0.5, -1.1),
		testSegment(t, 50, 3, 0.5, -1.1),
	})
	require.NoError(t, err)

	seg, w, err := store.FrameWeights(120)
	require.NoError(t, err)
	assert.Same(t, store.Segment(1), seg)
	// Frame 120 is offset 20 of segment 1
	require.Len(t, w, 3)
	assert.Equal(t, []float64{2000, 2001, 2002}, w)

	// Returned rows are copies, not views into the matrix
	w[0] = -5
	_, again, err := store.FrameWeights(120)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, again[0])
}

func TestNewSegmentColumnMismatch(t *testing.T) {
	lib := testLibrary(t, 3, 0.5, -1.1)
	_, err := NewSegment(lib, mat.NewDense(10, 2, nil))
	assert.Error(t, err)
}

func TestNewStoreEmpty(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

func TestStoreBounds(t *testing.T) {
	store, err := NewStore([]*Segment{
		testSegment(t, 5, 3, 0.50, -1.10),
		testSegment(t, 5, 3, 0.40, -1.30),
	})
	require.NoError(t, err)

	bounds := store.Bounds()
	assert.InDelta(t, 0.40, bounds.MinR, 1e-12)
	assert.InDelta(t, 0.52, bounds.MaxR, 1e-12)
	assert.InDelta(t, -1.32, bounds.MinZ, 1e-12)
	assert.InDelta(t, -1.10, bounds.MaxZ, 1e-12)
}

func TestSegmentWeightsOffset(t *testing.T) {
	seg := testSegment(t, 4, 3, 0.5, -1.1)
	_, err := seg.Weights(4)
	assert.True(t, IsIndexOutOfRange(err))
	_, err = seg.Weights(-1)
	assert.True(t, IsIndexOutOfRange(err))
}
