// Package homography fits, applies and persists the 3x3 projective transform
// that maps raw gaze points to desktop coordinates.
package homography

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Matrix is a row-major 3x3 homography.
type Matrix [9]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Finite reports whether every entry is a finite number.
func (m Matrix) Finite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Apply maps p through m: x' = (h00 x + h01 y + h02) / w, likewise for y.
func (m Matrix) Apply(p geom.Point) (geom.Point, error) {
	w := m[6]*p.X + m[7]*p.Y + m[8]
	if w == 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return geom.Point{}, fmt.Errorf("%w: zero denominator at %v", ErrNonFinite, p)
	}
	out := geom.Point{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / w,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / w,
	}
	if !out.Finite() {
		return geom.Point{}, fmt.Errorf("%w: projecting %v", ErrNonFinite, p)
	}
	return out, nil
}

func (m Matrix) String() string {
	return fmt.Sprintf("[%.6g %.6g %.6g; %.6g %.6g %.6g; %.6g %.6g %.6g]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8])
}
