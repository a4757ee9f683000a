// Package geom provides the small planar value types shared by the gaze pipeline.
package geom

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate. Depending on context it is in image pixels
// (landmarks, raw gaze) or desktop pixels (mapped gaze, calibration targets).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y)
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Mean returns the per-axis average of points. ok is false for an empty slice.
func Mean(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}, true
}

// Rect is an axis-aligned rectangle given by its top-left corner and extent.
type Rect struct {
	Min Point   `json:"min"`
	W   float64 `json:"w"`
	H   float64 `json:"h"`
}

// Contains reports whether p lies inside r. Edges are inclusive on both sides,
// so a point on a boundary shared by two rectangles belongs to both.
func (r Rect) Contains(p Point) bool {
	return r.Min.X <= p.X && p.X <= r.Min.X+r.W &&
		r.Min.Y <= p.Y && p.Y <= r.Min.Y+r.H
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
