// Package fieldline holds libraries of synthetic field-line basis
// images and derives the geometry operator used by the inversion.
//
// A basis element is the camera-plane projection of a single magnetic
// field line, rendered offline by a synthetic diagnostic, together
// with the (R, Z) machine coordinates where the field line crosses
// the divertor plane. The geometry operator maps a vector of
// per-field-line emissivities to a predicted camera image.
package fieldline

import (
	"fmt"

	"github.com/sballin/signal-tools/internal/models"
)

// Library is an immutable set of basis elements sharing one camera
// geometry. All images must have identical resolution.
type Library struct {
	images []*models.Frame
	r, z   []float64

	// geometry is derived once and reused for the library lifetime
	geometry *Geometry
}

// NewLibrary creates a library from basis images and their (R, Z)
// origin coordinates. The three slices must have equal length; an
// empty library is valid but most operations on it fail.
func NewLibrary(images []*models.Frame, r, z []float64) (*Library, error) {
	if len(r) != len(images) || len(z) != len(images) {
		return nil, fmt.Errorf("fieldline: %d images with %d R and %d Z coordinates", len(images), len(r), len(z))
	}
	return &Library{images: images, r: r, z: z}, nil
}

// Len returns the number of basis elements
func (l *Library) Len() int {
	return len(l.images)
}

// Image returns the basis image at index i
func (l *Library) Image(i int) *models.Frame {
	return l.images[i]
}

// Coords returns the (R, Z) origin of the basis element at index i
func (l *Library) Coords(i int) (r, z float64) {
	return l.r[i], l.z[i]
}

// R returns the radial coordinates of all elements in library order
func (l *Library) R() []float64 {
	return l.r
}

// Z returns the vertical coordinates of all elements in library order
func (l *Library) Z() []float64 {
	return l.z
}

// CoordinateBounds returns the coordinate extent spanned by the
// element origins. It fails with EmptyLibraryError when the library
// has no elements.
func (l *Library) CoordinateBounds() (models.Bounds, error) {
	if len(l.images) == 0 {
		return models.Bounds{}, &EmptyLibraryError{}
	}
	b := models.Bounds{MinR: l.r[0], MaxR: l.r[0], MinZ: l.z[0], MaxZ: l.z[0]}
	for i := 1; i < len(l.images); i++ {
		if l.r[i] < b.MinR {
			b.MinR = l.r[i]
		}
		if l.r[i] > b.MaxR {
			b.MaxR = l.r[i]
		}
		if l.z[i] < b.MinZ {
			b.MinZ = l.z[i]
		}
		if l.z[i] > b.MaxZ {
			b.MaxZ = l.z[i]
		}
	}
	return b, nil
}

// Geometry returns the geometry operator for this library, building
// it on first use. The operator is cached; a library never changes
// after construction so the cache never goes stale.
func (l *Library) Geometry() (*Geometry, error) {
	if l.geometry != nil {
		return l.geometry, nil
	}
	g, err := buildGeometry(l.images)
	if err != nil {
		return nil, err
	}
	l.geometry = g
	return g, nil
}
