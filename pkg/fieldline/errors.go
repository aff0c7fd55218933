package fieldline

import (
	"errors"
	"fmt"
)

// ShapeMismatchError is returned when an image does not match the
// resolution the rest of the system was built for
type ShapeMismatchError struct {
	// Subject names the offending image, e.g. "basis image 3"
	Subject string

	// WantHeight and WantWidth are the expected resolution
	WantHeight, WantWidth int

	// GotHeight and GotWidth are the actual resolution
	GotHeight, GotWidth int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s has resolution %dx%d, want %dx%d",
		e.Subject, e.GotHeight, e.GotWidth, e.WantHeight, e.WantWidth)
}

// IsShapeMismatch reports whether err is a ShapeMismatchError
func IsShapeMismatch(err error) bool {
	var target *ShapeMismatchError
	return errors.As(err, &target)
}

// EmptyLibraryError is returned when an operation requires at least
// one basis element and the library has none
type EmptyLibraryError struct{}

func (e *EmptyLibraryError) Error() string {
	return "basis library has no elements"
}

// IsEmptyLibrary reports whether err is an EmptyLibraryError
func IsEmptyLibrary(err error) bool {
	var target *EmptyLibraryError
	return errors.As(err, &target)
}
