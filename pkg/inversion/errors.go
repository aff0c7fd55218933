package inversion

import (
	"errors"
	"fmt"
)

// SingularSystemError is returned when the least-squares solver fails
// to converge on the given system. Solver failures are deterministic
// for a fixed input, so callers should not retry without changing the
// smoothing parameter or the input data.
type SingularSystemError struct {
	// Iterations is the number of active-set iterations performed
	// before giving up
	Iterations int
}

func (e *SingularSystemError) Error() string {
	return fmt.Sprintf("inversion did not converge after %d iterations", e.Iterations)
}

// IsSingularSystem reports whether err is a SingularSystemError
func IsSingularSystem(err error) bool {
	var target *SingularSystemError
	return errors.As(err, &target)
}
