package blink

import (
	"sync"
	"time"
)

// State is the two-state blink machine: open (Blinking false) or closed.
// Params holds the sensitivity captured when the current blink started, so a
// live sensitivity change never reclassifies a blink already in progress.
type State struct {
	Blinking bool        `json:"is_blinking"`
	Start    time.Time   `json:"blink_start_time"`
	Params   Sensitivity `json:"-"`
}

// Transition is the pure blink state function. It only ever sees present
// measurements; frames without a detection must not be fed to it.
//
//	open   + ratio <  threshold -> closed, record start, no event
//	closed + ratio >= threshold -> open, emit one event classified by duration
//	otherwise                   -> unchanged, no event
func Transition(s State, ratio float64, now time.Time, params Sensitivity) (State, *Event) {
	if !s.Blinking {
		if ratio < params.Threshold {
			return State{Blinking: true, Start: now, Params: params}, nil
		}
		return s, nil
	}

	if ratio < s.Params.Threshold {
		return s, nil
	}
	d := now.Sub(s.Start)
	if d < 0 {
		d = 0
	}
	ev := &Event{Kind: s.Params.Classify(d), Duration: d, At: now}
	if ev.Kind == Long {
		ev.Hold = s.Params.DragHold
	}
	return State{}, ev
}

// Classifier owns the blink state of one tracking session. Observe is called
// from the frame loop; SetSensitivity may be called from any goroutine.
type Classifier struct {
	mu     sync.Mutex
	state  State
	params Sensitivity
}

// NewClassifier creates a classifier in the open state.
func NewClassifier(params Sensitivity) *Classifier {
	return &Classifier{params: params}
}

// Observe feeds one averaged aspect ratio and returns the event it completes, if any.
func (c *Classifier) Observe(ratio float64, now time.Time) *Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, ev := Transition(c.state, ratio, now, c.params)
	c.state = next
	return ev
}

// State returns a copy of the current state.
func (c *Classifier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sensitivity returns the parameters applied to the next blink.
func (c *Classifier) Sensitivity() Sensitivity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SetSensitivity applies the non-zero fields of update. An invalid result is
// rejected and the previous parameters are kept.
func (c *Classifier) SetSensitivity(update Sensitivity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.params.Merge(update)
	if err := next.Validate(); err != nil {
		return err
	}
	c.params = next
	return nil
}

// Reset returns the machine to the open state.
func (c *Classifier) Reset() {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
}
