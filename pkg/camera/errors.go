package camera

import "errors"

var (
	// ErrCaptureUnavailable is returned when the camera cannot be opened or
	// read. It is fatal to the session using the camera.
	ErrCaptureUnavailable = errors.New("camera: capture unavailable")

	// ErrInvalidConfig is returned for an unusable Config.
	ErrInvalidConfig = errors.New("camera: invalid config")
)
