package actuator

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Call is one recorded actuator invocation.
type Call struct {
	Op     string
	Button Button
	At     geom.Point
}

func (c Call) String() string {
	if c.Op == "move" {
		return fmt.Sprintf("move%v", c.At)
	}
	return c.Op + ":" + string(c.Button)
}

// Mock records every call instead of touching the pointer. It is used by
// tests and by headless runs.
type Mock struct {
	mu    sync.Mutex
	calls []Call
	pos   geom.Point

	// Err, when set, is returned from every call.
	Err error
}

// NewMock returns an empty recorder.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if c.Op == "move" {
		m.pos = c.At
	} else {
		c.At = m.pos
	}
	m.calls = append(m.calls, c)
	return nil
}

func (m *Mock) MoveTo(p geom.Point) error { return m.record(Call{Op: "move", At: p}) }
func (m *Mock) Click(b Button) error      { return m.record(Call{Op: "click", Button: b}) }
func (m *Mock) Press(b Button) error      { return m.record(Call{Op: "press", Button: b}) }
func (m *Mock) Release(b Button) error    { return m.record(Call{Op: "release", Button: b}) }

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Ops returns the recorded calls rendered as strings, convenient for comparisons.
func (m *Mock) Ops() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Position returns the last position passed to MoveTo.
func (m *Mock) Position() geom.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Reset clears the recording.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
