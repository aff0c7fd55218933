package visualization

import (
	"fmt"
	"image/color"
	"math"
)

// Colormap maps a normalized intensity in [0, 1] to a display color.
// Inputs outside the range are clamped.
type Colormap func(t float64) color.NRGBA

// controlPoint anchors a colormap at one normalized intensity
type controlPoint struct {
	t float64
	r float64
	g float64
	b float64
}

// rampColormap builds a colormap by linear interpolation between
// control points, which must be sorted by t and span [0, 1]
func rampColormap(points []controlPoint) Colormap {
	return func(t float64) color.NRGBA {
		if math.IsNaN(t) || t <= points[0].t {
			p := points[0]
			return color.NRGBA{R: uint8(p.r), G: uint8(p.g), B: uint8(p.b), A: 255}
		}
		last := points[len(points)-1]
		if t >= last.t {
			return color.NRGBA{R: uint8(last.r), G: uint8(last.g), B: uint8(last.b), A: 255}
		}
		for i := 1; i < len(points); i++ {
			if t > points[i].t {
				continue
			}
			lo, hi := points[i-1], points[i]
			f := (t - lo.t) / (hi.t - lo.t)
			return color.NRGBA{
				R: uint8(lo.r + f*(hi.r-lo.r)),
				G: uint8(lo.g + f*(hi.g-lo.g)),
				B: uint8(lo.b + f*(hi.b-lo.b)),
				A: 255,
			}
		}
		return color.NRGBA{R: uint8(last.r), G: uint8(last.g), B: uint8(last.b), A: 255}
	}
}

// Gray is a linear black to white ramp
var Gray = rampColormap([]controlPoint{
	{0, 0, 0, 0},
	{1, 255, 255, 255},
})

// Heat runs black through red and orange to white, the usual palette
// for camera brightness
var Heat = rampColormap([]controlPoint{
	{0, 0, 0, 0},
	{0.5, 191, 0, 0},
	{2.0 / 3.0, 255, 85, 0},
	{0.75, 255, 128, 0},
	{1, 255, 255, 255},
})

// Plasma approximates the matplotlib plasma palette with five anchors
var Plasma = rampColormap([]controlPoint{
	{0, 13, 8, 135},
	{0.25, 126, 3, 168},
	{0.5, 204, 71, 120},
	{0.75, 248, 149, 64},
	{1, 240, 249, 33},
})

// ColormapByName returns the colormap registered under the given name
func ColormapByName(name string) (Colormap, error) {
	switch name {
	case "gray":
		return Gray, nil
	case "heat":
		return Heat, nil
	case "plasma":
		return Plasma, nil
	default:
		return nil, fmt.Errorf("unknown colormap: %s (must be gray, heat, or plasma)", name)
	}
}
