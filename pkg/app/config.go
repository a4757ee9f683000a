package app

import (
	"github.com/teslashibe/go-gaze/pkg/actuator"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Config holds the behaviour settings of the application.
// Loading from files and flags happens in cmd; this struct is data only.
type Config struct {
	// Device is the default camera selector for tracking and calibration.
	Device string

	Tracking    tracking.Config
	Calibration calibration.Config
}

// DefaultConfig returns defaults for every section.
func DefaultConfig() Config {
	return Config{
		Device:      camera.DefaultConfig().Device,
		Tracking:    tracking.DefaultConfig(),
		Calibration: calibration.DefaultConfig(),
	}
}

// Deps are the collaborators the application drives. Hardware-backed
// implementations are built in cmd; tests pass doubles.
type Deps struct {
	Monitors   screen.Enumerator
	Transforms *homography.Store
	Open       camera.Opener
	Provider   tracking.LandmarkProvider
	Pointer    actuator.Pointer

	// Surface presents calibration targets. Calibration is unavailable when nil.
	Surface calibration.Surface

	// Preview shows tracked frames. Optional.
	Preview tracking.Preview

	// Optional
	Metrics *metrics.Manager
	Events  func(any)
}
