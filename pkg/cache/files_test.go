package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFileNames(t *testing.T) {
	assert.Equal(t, "fl_data_Xpt_1160616016_03.npz", DataFileName("Xpt", 1160616016, 3))
	assert.Equal(t, "fl_emissivities_Xpt_1160616016_sp0.5_03.npy",
		WeightsFileName("Xpt", 1160616016, 0.5, 3))
	assert.Equal(t, "fl_emissivities_Xpt_1160616016_sp0_12.npy",
		WeightsFileName("Xpt", 1160616016, 0, 12))
}

func TestSegmentDataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lib := testLibrary(t, 4, 0.5, -1.1)

	path := filepath.Join(dir, DataFileName("Xpt", 42, 0))
	require.NoError(t, WriteSegmentData(path, lib))

	loaded, err := ReadSegmentData(path)
	require.NoError(t, err)
	require.Equal(t, lib.Len(), loaded.Len())

	for i := 0; i < lib.Len(); i++ {
		want := lib.Image(i)
		got := loaded.Image(i)
		require.Equal(t, want.Height, got.Height)
		require.Equal(t, want.Width, got.Width)
		assert.Equal(t, want.Data, got.Data, "image %d", i)

		wr, wz := lib.Coords(i)
		gr, gz := loaded.Coords(i)
		assert.Equal(t, wr, gr)
		assert.Equal(t, wz, gz)
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	weights := mat.NewDense(3, 2, []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5})

	path := filepath.Join(dir, WeightsFileName("Xpt", 42, 0.5, 0))
	require.NoError(t, WriteWeights(path, weights))

	loaded, err := ReadWeights(path)
	require.NoError(t, err)
	rows, cols := loaded.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 2, cols)
	assert.True(t, mat.Equal(weights, loaded))
}

func TestLoadStore(t *testing.T) {
	dir := t.TempDir()
	const (
		region    = "Xpt"
		shot      = 42
		smoothing = 0.5
	)

	frameCounts := []int{3, 5}
	for seg, frames := range frameCounts {
		lib := testLibrary(t, 2, 0.5+0.1*float64(seg), -1.1)
		require.NoError(t, WriteSegmentData(filepath.Join(dir, DataFileName(region, shot, seg)), lib))

		weights := mat.NewDense(frames, 2, nil)
		for f := 0; f < frames; f++ {
			weights.Set(f, 0, float64(seg*1000+f))
			weights.Set(f, 1, float64(seg*1000+f)+0.5)
		}
		require.NoError(t, WriteWeights(filepath.Join(dir, WeightsFileName(region, shot, smoothing, seg)), weights))
	}

	store, err := Load(dir, region, shot, smoothing)
	require.NoError(t, err)
	assert.Equal(t, 2, store.NumSegments())
	assert.Equal(t, 8, store.NumFrames())

	// Frame 5 is offset 2 of segment 1
	seg, w, err := store.FrameWeights(5)
	require.NoError(t, err)
	assert.Same(t, store.Segment(1), seg)
	assert.Equal(t, []float64{1002, 1002.5}, w)

	// A different smoothing parameter has no weight files
	_, err = Load(dir, region, shot, 2.0)
	assert.Error(t, err)
}

func TestLoadCountMismatch(t *testing.T) {
	dir := t.TempDir()
	lib := testLibrary(t, 2, 0.5, -1.1)
	require.NoError(t, WriteSegmentData(filepath.Join(dir, DataFileName("Xpt", 7, 0)), lib))
	require.NoError(t, WriteSegmentData(filepath.Join(dir, DataFileName("Xpt", 7, 1)), lib))
	require.NoError(t, WriteWeights(filepath.Join(dir, WeightsFileName("Xpt", 7, 0.5, 0)), mat.NewDense(2, 2, nil)))

	_, err := Load(dir, "Xpt", 7, 0.5)
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "Xpt", 999, 0.5)
	assert.Error(t, err)
}

func TestReadSegmentDataMissingMember(t *testing.T) {
	dir := t.TempDir()
	// A plain file that is not a zip archive must fail cleanly
	path := filepath.Join(dir, "fl_data_Xpt_1_00.npz")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))
	_, err := ReadSegmentData(path)
	assert.Error(t, err)
}
