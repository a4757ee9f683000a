package eye

import "errors"

// Sentinel errors for per-frame eye measurements. Both are recoverable: the
// frame (or the affected eye) is skipped.
var (
	// ErrDetectionAbsent is returned when no face or no usable landmarks were found.
	ErrDetectionAbsent = errors.New("eye: detection absent")

	// ErrDegenerateGeometry is returned when an eye's horizontal corner distance is zero.
	ErrDegenerateGeometry = errors.New("eye: degenerate geometry")

	// ErrRegionSize is returned when a region is built from anything but six points.
	ErrRegionSize = errors.New("eye: region needs exactly 6 points")
)
