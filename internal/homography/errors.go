package homography

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller errors such as malformed point sets.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMismatchedPointSets is returned when the two point sets differ in length.
	ErrMismatchedPointSets = fmt.Errorf("%w: point sets must have equal length", ErrInvalidArgument)

	// ErrDegenerate marks a numerically degenerate configuration: coincident or
	// collinear points, a rank-deficient DLT system or a singular homography.
	ErrDegenerate = errors.New("degenerate configuration")

	// ErrInvalidConfig is returned for out-of-range estimator parameters.
	ErrInvalidConfig = errors.New("invalid estimator configuration")
)
