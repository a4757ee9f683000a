package app

import "errors"

var (
	// ErrBusy is returned when calibration and tracking would overlap. They
	// share the camera and are mutually exclusive.
	ErrBusy = errors.New("app: another calibration or tracking session is active")

	// ErrUnknownSession is returned for a session id that is not running.
	ErrUnknownSession = errors.New("app: unknown session")

	// ErrNoSurface is returned when calibration is requested without a
	// display surface.
	ErrNoSurface = errors.New("app: no calibration surface")
)
