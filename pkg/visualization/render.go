// Package visualization renders camera frames and inverted emission
// fields to PNG images for inspection and movie assembly.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/sballin/signal-tools/internal/models"
)

// valueRange finds the finite minimum and maximum of a slice,
// ignoring NaN entries. ok is false when no finite value exists.
func valueRange(values []float64) (lo, hi float64, ok bool) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, lo <= hi
}

// normalize maps a value into [0, 1] given a range. A flat range
// maps everything to zero.
func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// RenderFrame renders a camera frame with the given colormap. Pixel
// values are normalized to the frame's own range.
func RenderFrame(frame *models.Frame, cmap Colormap) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	lo, hi, _ := valueRange(frame.Data)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			img.SetNRGBA(x, y, cmap(normalize(frame.At(y, x), lo, hi)))
		}
	}
	return img
}

// RenderField renders an inverted emission field with the given
// colormap. Grid nodes outside the basis coordinate hull carry NaN
// and render black. Rows are flipped so that increasing Z points up
// in the image.
func RenderField(field *models.SpatialField, cmap Colormap) image.Image {
	nr := len(field.R)
	nz := len(field.Z)
	img := image.NewNRGBA(image.Rect(0, 0, nr, nz))
	lo, hi, _ := valueRange(field.Values)
	for iz := 0; iz < nz; iz++ {
		y := nz - 1 - iz
		for ir := 0; ir < nr; ir++ {
			v := field.At(iz, ir)
			if math.IsNaN(v) {
				img.SetNRGBA(ir, y, color.NRGBA{A: 255})
				continue
			}
			img.SetNRGBA(ir, y, cmap(normalize(v, lo, hi)))
		}
	}
	return img
}

// RenderOverlay draws the reconstructed model image over the camera
// frame: the frame renders as grayscale and the reconstruction blends
// in as a transparent-to-red ramp. Both frames must share one
// resolution.
func RenderOverlay(frame, reconstruction *models.Frame) (image.Image, error) {
	if !frame.SameShape(reconstruction) {
		return nil, fmt.Errorf("overlay resolution %dx%d does not match frame %dx%d",
			reconstruction.Height, reconstruction.Width, frame.Height, frame.Width)
	}
	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	flo, fhi, _ := valueRange(frame.Data)
	rlo, rhi, _ := valueRange(reconstruction.Data)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			base := normalize(frame.At(y, x), flo, fhi)
			alpha := normalize(reconstruction.At(y, x), rlo, rhi)
			gray := base * (1 - alpha) * 255
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(gray + alpha*255),
				G: uint8(gray),
				B: uint8(gray),
				A: 255,
			})
		}
	}
	return img, nil
}

// SavePNG writes an image to disk as PNG
func SavePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}
