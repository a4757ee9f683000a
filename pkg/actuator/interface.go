// Package actuator defines the pointer actuator contract. The robotgo
// implementation lives in actuator/desktop.
//
// The tracking loop needs a Mover and the blink dispatcher needs a Clicker
// and a Presser; Pointer composes all three.
package actuator

import "github.com/teslashibe/go-gaze/pkg/geom"

// Button names a pointer button.
type Button string

const (
	Left  Button = "left"
	Right Button = "right"
)

// Mover positions the pointer in global desktop coordinates.
type Mover interface {
	MoveTo(p geom.Point) error
}

// Clicker performs full clicks.
type Clicker interface {
	Click(b Button) error
}

// Presser holds and releases a button, for drag gestures.
type Presser interface {
	Press(b Button) error
	Release(b Button) error
}

// Pointer is the composite used by the tracking session.
type Pointer interface {
	Mover
	Clicker
	Presser
}

var _ Pointer = (*Mock)(nil)
