package calibration

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// Grid returns the calibration targets for mon in row-major order, in desktop
// coordinates truncated to whole pixels.
func Grid(mon screen.Monitor, fractions []float64) []geom.Point {
	out := make([]geom.Point, 0, len(fractions)*len(fractions))
	for _, fy := range fractions {
		for _, fx := range fractions {
			out = append(out, geom.Point{
				X: mon.Origin.X + math.Trunc(fx*mon.Width),
				Y: mon.Origin.Y + math.Trunc(fy*mon.Height),
			})
		}
	}
	return out
}
