package calibration

import "errors"

var (
	// ErrInsufficientSamples is returned when fewer than MinPoints calibration
	// points were collected. The previously stored transform is kept.
	ErrInsufficientSamples = errors.New("calibration: insufficient calibration samples")

	// ErrAborted is returned when the user aborts from the display surface.
	ErrAborted = errors.New("calibration: aborted")

	// ErrInvalidConfig is returned by NewEngine for an unusable Config.
	ErrInvalidConfig = errors.New("calibration: invalid config")
)
