package interpolation

import (
	"errors"
	"fmt"
)

// DegenerateError is returned when the coordinate set cannot support
// a triangulation: fewer than three points, or all points collinear
type DegenerateError struct {
	// Points is the number of coordinate points supplied
	Points int

	// Reason describes why the triangulation failed
	Reason string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("interpolation undefined for %d points: %s", e.Points, e.Reason)
}

// IsDegenerate reports whether err is a DegenerateError
func IsDegenerate(err error) bool {
	var target *DegenerateError
	return errors.As(err, &target)
}
