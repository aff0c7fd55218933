package acquire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sballin/signal-tools/internal/models"
)

func frameFromData(t *testing.T, height, width int, data []float64) *models.Frame {
	t.Helper()
	f := models.NewFrame(height, width)
	copy(f.Data, data)
	return f
}

func TestSubtractBackground(t *testing.T) {
	frames := []*models.Frame{
		frameFromData(t, 1, 3, []float64{5, 2, 7}),
		frameFromData(t, 1, 3, []float64{3, 4, 1}),
		frameFromData(t, 1, 3, []float64{10, 10, 10}),
		frameFromData(t, 1, 3, []float64{6, 6, 6}),
	}
	require.NoError(t, SubtractBackground(frames, 2))

	// Background is the per-pixel minimum of the first two frames: [3, 2, 1].
	want := [][]float64{
		{2, 0, 6},
		{0, 2, 0},
		{7, 8, 9},
		{3, 4, 5},
	}
	for i, f := range frames {
		require.Equal(t, want[i], f.Data, "frame %d", i)
	}
}

func TestSubtractBackgroundWindowClamp(t *testing.T) {
	frames := []*models.Frame{
		frameFromData(t, 1, 2, []float64{4, 9}),
		frameFromData(t, 1, 2, []float64{2, 5}),
	}
	require.NoError(t, SubtractBackground(frames, 100))
	require.Equal(t, []float64{2, 4}, frames[0].Data)
	require.Equal(t, []float64{0, 0}, frames[1].Data)
}

func TestSubtractBackgroundValidation(t *testing.T) {
	frames := []*models.Frame{frameFromData(t, 1, 2, []float64{1, 2})}
	require.Error(t, SubtractBackground(frames, 0))

	mixed := []*models.Frame{
		frameFromData(t, 1, 2, []float64{1, 2}),
		models.NewFrame(2, 2),
	}
	require.Error(t, SubtractBackground(mixed, 1))

	require.NoError(t, SubtractBackground(nil, 5))
}

func TestSobelVerticalEdge(t *testing.T) {
	f := frameFromData(t, 3, 3, []float64{
		0, 0, 10,
		0, 0, 10,
		0, 0, 10,
	})
	got := Sobel(f)

	want := []float64{
		0, 0, 0,
		0, 40, 0,
		0, 0, 0,
	}
	require.Equal(t, want, got.Data)
}

func TestSobelFlatFrame(t *testing.T) {
	f := frameFromData(t, 4, 4, make([]float64, 16))
	for p := range f.Data {
		f.Data[p] = 7
	}
	got := Sobel(f)
	require.Equal(t, make([]float64, 16), got.Data)
}

func TestSobelNoInterior(t *testing.T) {
	f := frameFromData(t, 2, 2, []float64{1, 2, 3, 4})
	got := Sobel(f)
	require.Equal(t, []float64{0, 0, 0, 0}, got.Data)
}
