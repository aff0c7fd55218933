// Package acquire provides file-backed acquisition collaborators:
// camera frame stacks, camera time series and equilibrium time
// series, read from NumPy containers dumped by the data system.
package acquire

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/sballin/signal-tools/internal/models"
)

// VideoSource serves camera frames from an .npz video container
// with members video (frames flattened to rows) and video_shape
// (height, width). The whole stack is held in memory, matching how
// the downstream per-frame access pattern works.
type VideoSource struct {
	data   *mat.Dense
	height int
	width  int
}

// OpenVideo loads a video container from disk
func OpenVideo(path string) (*VideoSource, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}
	defer zr.Close()

	var data mat.Dense
	if err := readVideoMember(&zr.Reader, "video", &data); err != nil {
		return nil, err
	}
	var shape []int64
	if err := readVideoMember(&zr.Reader, "video_shape", &shape); err != nil {
		return nil, err
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("acquire: video_shape has %d entries, want 2", len(shape))
	}

	height := int(shape[0])
	width := int(shape[1])
	_, cols := data.Dims()
	if cols != height*width {
		return nil, fmt.Errorf("acquire: video rows have %d pixels, shape says %dx%d", cols, height, width)
	}
	return &VideoSource{data: &data, height: height, width: width}, nil
}

func readVideoMember(zr *zip.Reader, name string, ptr interface{}) error {
	for _, f := range zr.File {
		if strings.TrimSuffix(f.Name, ".npy") != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open member %s: %w", name, err)
		}
		defer rc.Close()
		if err := npyio.Read(rc, ptr); err != nil {
			return fmt.Errorf("failed to read member %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("acquire: video file has no member %s", name)
}

// Len returns the number of frames in the stack
func (v *VideoSource) Len() int {
	rows, _ := v.data.Dims()
	return rows
}

// Resolution returns the frame height and width in pixels
func (v *VideoSource) Resolution() (height, width int) {
	return v.height, v.width
}

// Frame returns a copy of the frame at the given index
func (v *VideoSource) Frame(index int) (*models.Frame, error) {
	if index < 0 || index >= v.Len() {
		return nil, fmt.Errorf("acquire: frame index %d outside %d frames", index, v.Len())
	}
	f := models.NewFrame(v.height, v.width)
	mat.Row(f.Data, index, v.data)
	return f, nil
}

// WriteVideo writes a frame stack to an .npz video container. All
// frames must share one resolution.
func WriteVideo(path string, frames []*models.Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("acquire: no frames to write")
	}
	height := frames[0].Height
	width := frames[0].Width
	stack := mat.NewDense(len(frames), height*width, nil)
	for i, f := range frames {
		if f.Height != height || f.Width != width {
			return fmt.Errorf("acquire: frame %d has resolution %dx%d, want %dx%d",
				i, f.Height, f.Width, height, width)
		}
		stack.SetRow(i, f.Data)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create video file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	members := []struct {
		name string
		val  interface{}
	}{
		{"video", stack},
		{"video_shape", []int64{int64(height), int64(width)}},
	}
	for _, m := range members {
		w, err := zw.Create(m.name + ".npy")
		if err != nil {
			return fmt.Errorf("failed to add member %s: %w", m.name, err)
		}
		if err := npyio.Write(w, m.val); err != nil {
			return fmt.Errorf("failed to write member %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize video file: %w", err)
	}
	return nil
}

// ReadTimes loads a 1D time series from an .npy file
func ReadTimes(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open time series: %w", err)
	}
	defer f.Close()
	var times []float64
	if err := npyio.Read(f, &times); err != nil {
		return nil, fmt.Errorf("failed to read time series: %w", err)
	}
	return times, nil
}

// WriteTimes writes a 1D time series to an .npy file
func WriteTimes(path string, times []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create time series: %w", err)
	}
	defer f.Close()
	if err := npyio.Write(f, times); err != nil {
		return fmt.Errorf("failed to write time series: %w", err)
	}
	return nil
}
