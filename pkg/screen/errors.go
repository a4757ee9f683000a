package screen

import "errors"

var (
	// ErrNotCalibrated is returned when no transform exists for a display.
	// Tracking continues without moving the pointer.
	ErrNotCalibrated = errors.New("screen: display not calibrated")

	// ErrNoMonitors is returned when enumeration finds no displays.
	ErrNoMonitors = errors.New("screen: no monitors")

	// ErrUnknownMonitor is returned for a monitor id that was not enumerated.
	ErrUnknownMonitor = errors.New("screen: unknown monitor")
)
