// Package blink classifies a noisy eye-openness series into discrete blink
// events and turns those events into pointer actions.
package blink

import (
	"fmt"
	"time"
)

// Kind is the duration class of a completed blink.
type Kind int

const (
	// Single is a short blink (primary click).
	Single Kind = iota
	// Double is a medium blink (secondary click).
	Double
	// Long is a held blink (press, hold, release).
	Long
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Double:
		return "double"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// Event is emitted exactly once when the eyes reopen after a blink.
type Event struct {
	Kind     Kind          `json:"kind"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
	// Hold is the press duration for a Long blink.
	Hold time.Duration `json:"hold,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s blink (%v)", e.Kind, e.Duration.Round(time.Millisecond))
}

// Sensitivity holds the live-adjustable classification parameters.
type Sensitivity struct {
	// Threshold is the averaged aspect ratio below which the eyes count as closed.
	Threshold float64

	// SingleMax is the upper bound (exclusive) of a single blink.
	SingleMax time.Duration

	// LongMin is the lower bound (inclusive) of a long blink.
	LongMin time.Duration

	// DragHold is how long the primary button stays down for a long blink.
	DragHold time.Duration
}

// DefaultSensitivity returns the stock parameters.
func DefaultSensitivity() Sensitivity {
	return Sensitivity{
		Threshold: 0.25,
		SingleMax: 200 * time.Millisecond,
		LongMin:   2 * time.Second,
		DragHold:  500 * time.Millisecond,
	}
}

// Merge returns s with every non-zero field of update applied.
func (s Sensitivity) Merge(update Sensitivity) Sensitivity {
	if update.Threshold > 0 {
		s.Threshold = update.Threshold
	}
	if update.SingleMax > 0 {
		s.SingleMax = update.SingleMax
	}
	if update.LongMin > 0 {
		s.LongMin = update.LongMin
	}
	if update.DragHold > 0 {
		s.DragHold = update.DragHold
	}
	return s
}

// Validate checks that the duration classes are ordered.
func (s Sensitivity) Validate() error {
	if s.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidSensitivity)
	}
	if s.SingleMax <= 0 || s.LongMin <= s.SingleMax {
		return fmt.Errorf("%w: need 0 < blink_duration < long_blink_duration", ErrInvalidSensitivity)
	}
	if s.DragHold < 0 {
		return fmt.Errorf("%w: drag_hold must not be negative", ErrInvalidSensitivity)
	}
	return nil
}

// Classify maps a closed-eye duration to its blink kind.
func (s Sensitivity) Classify(d time.Duration) Kind {
	switch {
	case d < s.SingleMax:
		return Single
	case d < s.LongMin:
		return Double
	default:
		return Long
	}
}
