package calibration

import (
	"fmt"
	"time"
)

// Config holds the calibration procedure parameters
type Config struct {
	// Sampling
	Window    time.Duration // Per-target sampling window, ended early by confirm
	Fractions []float64     // Grid positions as fractions of width/height

	// Fitting
	MinPoints int  // Minimum calibration points needed to fit
	Fallback  bool // Use the target itself when a target yields no samples
}

// DefaultConfig returns the stock 3x3 grid with a two second window per point
func DefaultConfig() Config {
	return Config{
		Window:    2 * time.Second,
		Fractions: []float64{0.25, 0.5, 0.75}, // quarter, half, three-quarter
		MinPoints: 4,
		Fallback:  true,
	}
}

// Validate returns a list of problems with the configuration
func (c Config) Validate() []string {
	var errs []string
	if c.Window <= 0 {
		errs = append(errs, "window must be positive")
	}
	if len(c.Fractions) == 0 {
		errs = append(errs, "at least one grid fraction is required")
	}
	for _, f := range c.Fractions {
		if f < 0 || f > 1 {
			errs = append(errs, fmt.Sprintf("grid fraction %v outside [0,1]", f))
		}
	}
	if c.MinPoints < 4 {
		errs = append(errs, "min_points must be at least 4")
	}
	return errs
}
