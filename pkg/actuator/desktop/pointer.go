// Package desktop implements the pointer actuator and monitor enumeration
// on the real window system through robotgo.
package desktop

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/actuator"
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Pointer moves the real pointer through robotgo. Calls are serialized.
type Pointer struct {
	mu   sync.Mutex
	last geom.Point
}

// NewPointer returns a pointer actuator backed by robotgo.
func NewPointer() *Pointer {
	return &Pointer{}
}

var _ actuator.Pointer = (*Pointer)(nil)

// MoveTo moves the pointer to p, rounded to whole pixels.
func (r *Pointer) MoveTo(p geom.Point) error {
	if !p.Finite() {
		return fmt.Errorf("desktop: non-finite target %v", p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	robotgo.Move(int(math.Round(p.X)), int(math.Round(p.Y)))
	r.last = p
	return nil
}

// Click performs a full click with b.
func (r *Pointer) Click(b actuator.Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	robotgo.Click(string(b))
	log.Debug("pointer click", "button", b, "at", r.last)
	return nil
}

// Press holds b down.
func (r *Pointer) Press(b actuator.Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := robotgo.Toggle(string(b)); err != nil {
		return fmt.Errorf("desktop: press %s: %w", b, err)
	}
	return nil
}

// Release lets go of b.
func (r *Pointer) Release(b actuator.Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := robotgo.Toggle(string(b), "up"); err != nil {
		return fmt.Errorf("desktop: release %s: %w", b, err)
	}
	return nil
}
