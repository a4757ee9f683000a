package homography

import "errors"

var (
	// ErrTooFewPoints is returned when fewer than four correspondences are given.
	ErrTooFewPoints = errors.New("homography: need at least 4 point pairs")

	// ErrDegenerate is returned when the correspondences do not determine a
	// unique transform (coincident or collinear points).
	ErrDegenerate = errors.New("homography: degenerate point configuration")

	// ErrNonFinite is returned when a fit or a projection produces NaN or Inf.
	ErrNonFinite = errors.New("homography: non-finite result")

	// ErrNotFound is returned when no transform is stored for a display.
	ErrNotFound = errors.New("homography: no stored transform")

	// ErrPersistence wraps storage failures.
	ErrPersistence = errors.New("homography: persistence failed")
)
