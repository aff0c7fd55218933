package acquire

import (
	"fmt"
	"math"

	"github.com/sballin/signal-tools/internal/models"
)

// SubtractBackground removes the static camera background from a
// frame stack. The background is the per-pixel minimum over the
// first window frames (pre-emission dark frames), and it is
// subtracted from every frame in place. window is clamped to the
// stack length.
func SubtractBackground(frames []*models.Frame, window int) error {
	if len(frames) == 0 {
		return nil
	}
	if window < 1 {
		return fmt.Errorf("acquire: background window must be at least 1, got %d", window)
	}
	if window > len(frames) {
		window = len(frames)
	}
	for i := 1; i < len(frames); i++ {
		if !frames[i].SameShape(frames[0]) {
			return fmt.Errorf("acquire: frame %d has resolution %dx%d, want %dx%d",
				i, frames[i].Height, frames[i].Width, frames[0].Height, frames[0].Width)
		}
	}

	background := make([]float64, frames[0].Pixels())
	copy(background, frames[0].Data)
	for i := 1; i < window; i++ {
		for p, v := range frames[i].Data {
			if v < background[p] {
				background[p] = v
			}
		}
	}
	for _, f := range frames {
		for p := range f.Data {
			f.Data[p] -= background[p]
		}
	}
	return nil
}

// Sobel returns the gradient magnitude of a frame using the 3x3
// Sobel kernels. Border pixels, where the stencil leaves the frame,
// are set to zero.
func Sobel(frame *models.Frame) *models.Frame {
	out := models.NewFrame(frame.Height, frame.Width)
	for y := 1; y < frame.Height-1; y++ {
		for x := 1; x < frame.Width-1; x++ {
			gx := frame.At(y-1, x+1) + 2*frame.At(y, x+1) + frame.At(y+1, x+1) -
				frame.At(y-1, x-1) - 2*frame.At(y, x-1) - frame.At(y+1, x-1)
			gy := frame.At(y+1, x-1) + 2*frame.At(y+1, x) + frame.At(y+1, x+1) -
				frame.At(y-1, x-1) - 2*frame.At(y-1, x) - frame.At(y-1, x+1)
			out.Set(y, x, math.Sqrt(gx*gx+gy*gy))
		}
	}
	return out
}
