package models

import "math"

// Bounds describes a rectangular region of the poloidal plane in
// machine coordinates
type Bounds struct {
	// MinR and MaxR are the radial extent in meters
	MinR, MaxR float64

	// MinZ and MaxZ are the vertical extent in meters
	MinZ, MaxZ float64
}

// Union returns the smallest bounds containing both b and other
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		MinR: math.Min(b.MinR, other.MinR),
		MaxR: math.Max(b.MaxR, other.MaxR),
		MinZ: math.Min(b.MinZ, other.MinZ),
		MaxZ: math.Max(b.MaxZ, other.MaxZ),
	}
}

// SpatialField represents scalar values sampled on a regular (R, Z)
// grid over the poloidal plane
type SpatialField struct {
	// R holds the radial coordinate of each grid column in meters
	R []float64

	// Z holds the vertical coordinate of each grid row in meters
	Z []float64

	// Values is the grid data as a 1D array in row-major order,
	// len(Z) rows by len(R) columns. Cells outside the source data's
	// convex hull hold NaN.
	Values []float64
}

// At returns the value at grid row iz, column ir
func (s *SpatialField) At(iz, ir int) float64 {
	return s.Values[iz*len(s.R)+ir]
}

// Bounds returns the coordinate extent of the grid
func (s *SpatialField) Bounds() Bounds {
	if len(s.R) == 0 || len(s.Z) == 0 {
		return Bounds{}
	}
	return Bounds{
		MinR: s.R[0],
		MaxR: s.R[len(s.R)-1],
		MinZ: s.Z[0],
		MaxZ: s.Z[len(s.Z)-1],
	}
}
