package models

// Frame represents a single 2D camera image or synthetic image as
// float64 intensities
type Frame struct {
	// Data is the pixel data as a 1D array in row-major order
	Data []float64

	// Height is the number of pixel rows
	Height int

	// Width is the number of pixel columns
	Width int
}

// NewFrame creates a zero-filled frame with the given resolution
func NewFrame(height, width int) *Frame {
	return &Frame{
		Data:   make([]float64, height*width),
		Height: height,
		Width:  width,
	}
}

// Pixels returns the total number of pixels in the frame
func (f *Frame) Pixels() int {
	return f.Height * f.Width
}

// At returns the intensity at row y, column x
func (f *Frame) At(y, x int) float64 {
	return f.Data[y*f.Width+x]
}

// Set stores an intensity at row y, column x
func (f *Frame) Set(y, x int, v float64) {
	f.Data[y*f.Width+x] = v
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Data:   make([]float64, len(f.Data)),
		Height: f.Height,
		Width:  f.Width,
	}
	copy(out.Data, f.Data)
	return out
}

// SameShape reports whether two frames have identical resolution
func (f *Frame) SameShape(other *Frame) bool {
	return f.Height == other.Height && f.Width == other.Width
}
