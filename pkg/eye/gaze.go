package eye

import "github.com/teslashibe/go-gaze/pkg/geom"

// Centroid returns the mean of the region's contour points.
func Centroid(r Region) geom.Point {
	c, _ := geom.Mean(r[:])
	return c
}

// GazePoint estimates one raw gaze coordinate as the midpoint of both eye
// centroids. It is a contour-centroid proxy, not pupil tracking. ok is false
// when either eye is absent.
func GazePoint(left, right *Region) (geom.Point, bool) {
	if left == nil || right == nil {
		return geom.Point{}, false
	}
	l, r := Centroid(*left), Centroid(*right)
	return geom.Point{X: (l.X + r.X) / 2, Y: (l.Y + r.Y) / 2}, true
}
