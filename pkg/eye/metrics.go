package eye

import (
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// AspectRatio computes the eye aspect ratio
//
//	(|p1-p5| + |p2-p4|) / (2 * |p0-p3|)
//
// It is low when the eye is closed.
func AspectRatio(r Region) (float64, error) {
	horizontal := geom.Dist(r[0], r[3])
	if horizontal == 0 {
		return 0, ErrDegenerateGeometry
	}
	v1 := geom.Dist(r[1], r[5])
	v2 := geom.Dist(r[2], r[4])
	return (v1 + v2) / (2 * horizontal), nil
}

// AverageRatio averages the aspect ratio of the eyes that are present and
// measurable. A degenerate eye is dropped and the other eye used alone.
// With nothing measurable it returns ErrDegenerateGeometry if an eye was
// present but degenerate, ErrDetectionAbsent otherwise.
func AverageRatio(left, right *Region) (float64, error) {
	var sum float64
	var n int
	degenerate := false
	for _, r := range []*Region{left, right} {
		if r == nil {
			continue
		}
		ratio, err := AspectRatio(*r)
		if err != nil {
			degenerate = true
			continue
		}
		sum += ratio
		n++
	}
	if n == 0 {
		if degenerate {
			return 0, ErrDegenerateGeometry
		}
		return 0, ErrDetectionAbsent
	}
	return sum / float64(n), nil
}
