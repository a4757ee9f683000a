// Package screen maps calibrated gaze onto the physical displays: it applies
// the stored transform, picks the active monitor and clamps to its bounds.
package screen

import (
	"fmt"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Monitor describes one display in desktop coordinates.
type Monitor struct {
	ID     string     `json:"id"`
	Index  int        `json:"index"`
	Origin geom.Point `json:"origin"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

// Bounds returns the monitor rectangle in desktop coordinates.
func (m Monitor) Bounds() geom.Rect {
	return geom.Rect{Min: m.Origin, W: m.Width, H: m.Height}
}

// Contains reports whether the desktop point p lies on m, edges included.
func (m Monitor) Contains(p geom.Point) bool {
	return m.Bounds().Contains(p)
}

// ToLocal converts a desktop point to monitor-local coordinates clamped to
// [0,Width]x[0,Height].
func (m Monitor) ToLocal(p geom.Point) geom.Point {
	return geom.Point{
		X: geom.Clamp(p.X-m.Origin.X, 0, m.Width),
		Y: geom.Clamp(p.Y-m.Origin.Y, 0, m.Height),
	}
}

// ToDesktop converts a monitor-local point back to desktop coordinates.
func (m Monitor) ToDesktop(local geom.Point) geom.Point {
	return local.Add(m.Origin)
}

// Valid reports whether the monitor has a usable extent.
func (m Monitor) Valid() error {
	if m.ID == "" {
		return fmt.Errorf("screen: monitor %d has no id", m.Index)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("screen: monitor %q has empty extent %vx%v", m.ID, m.Width, m.Height)
	}
	return nil
}

func (m Monitor) String() string {
	return fmt.Sprintf("%s[%vx%v@%v]", m.ID, m.Width, m.Height, m.Origin)
}
