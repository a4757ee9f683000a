// Package tracking runs the per-frame gaze pipeline: landmarks, blink
// classification, gaze mapping and pointer actuation.
package tracking

import (
	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/eye"
)

// Config holds all tunable parameters for gaze tracking
type Config struct {
	// Blink classification
	Sensitivity blink.Sensitivity

	// Landmark layout used to slice the eye regions
	Layout eye.Layout

	// Pointer motion
	GazeSmoothing float64 // Exponential smoothing factor (0-1, higher = more new data, 1 = off)
	MoveDeadZone  float64 // Don't move the pointer if the target changed less than this (pixels)
}

// DefaultConfig returns the configuration that moves the pointer on every
// mapped frame without smoothing
func DefaultConfig() Config {
	return Config{
		Sensitivity:   blink.DefaultSensitivity(),
		Layout:        eye.Layout68,
		GazeSmoothing: 1.0, // raw gaze
		MoveDeadZone:  0,   // move on every frame
	}
}

// SmoothConfig returns a configuration for a steadier, slower pointer
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.GazeSmoothing = 0.4
	cfg.MoveDeadZone = 8
	return cfg
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
