package cache

import (
	"errors"
	"fmt"
)

// IndexOutOfRangeError is returned when a frame index falls outside
// the total frame count covered by a segment store
type IndexOutOfRangeError struct {
	// Index is the requested frame index
	Index int

	// Total is the number of frames across all segments
	Total int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("frame index %d outside %d total frames", e.Index, e.Total)
}

// IsIndexOutOfRange reports whether err is an IndexOutOfRangeError
func IsIndexOutOfRange(err error) bool {
	var target *IndexOutOfRangeError
	return errors.As(err, &target)
}
