// Package eye turns facial landmarks into per-eye measurements: the eye aspect
// ratio used for blink detection and the contour centroid used as a coarse
// gaze proxy.
package eye

import (
	"fmt"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// RegionSize is the number of contour points describing one eye.
const RegionSize = 6

// LandmarkSet is the ordered landmark list produced for one face in one frame.
// Index i always holds the same anatomical role.
type LandmarkSet []geom.Point

// Region is the six-point contour of one eye, ordered p0..p5:
// p0 and p3 are the horizontal corners, (p1,p5) and (p2,p4) the vertical pairs.
// A Region is always complete; a partial eye is represented by its absence.
type Region [RegionSize]geom.Point

// NewRegion builds a Region from exactly six points.
func NewRegion(points []geom.Point) (Region, error) {
	var r Region
	if len(points) != RegionSize {
		return r, fmt.Errorf("%w: got %d", ErrRegionSize, len(points))
	}
	copy(r[:], points)
	return r, nil
}

// Points returns the contour as a slice.
func (r Region) Points() []geom.Point {
	return r[:]
}

// Layout maps landmark indices to the two eye contours.
type Layout struct {
	Left  [RegionSize]int
	Right [RegionSize]int
}

// Layout68 is the 68-point iBUG/dlib annotation used by common landmark models.
var Layout68 = Layout{
	Left:  [RegionSize]int{36, 37, 38, 39, 40, 41},
	Right: [RegionSize]int{42, 43, 44, 45, 46, 47},
}

// MinLandmarks returns how many landmarks a set needs for both eyes to be present.
func (l Layout) MinLandmarks() int {
	hi := 0
	for _, idx := range append(l.Left[:], l.Right[:]...) {
		if idx > hi {
			hi = idx
		}
	}
	return hi + 1
}

// Regions extracts both eye contours from set. A region is nil when the set
// does not hold every index it needs.
func (l Layout) Regions(set LandmarkSet) (left, right *Region) {
	return l.region(set, l.Left), l.region(set, l.Right)
}

func (l Layout) region(set LandmarkSet, idx [RegionSize]int) *Region {
	var r Region
	for i, j := range idx {
		if j < 0 || j >= len(set) {
			return nil
		}
		r[i] = set[j]
	}
	return &r
}
