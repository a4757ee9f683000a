package screen

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
)

// Transforms provides the stored transform for a display.
// *homography.Cache satisfies it.
type Transforms interface {
	Get(displayID string) (homography.Matrix, error)
}

// Mapper turns raw gaze into a monitor-local pointer position. It remembers
// the active monitor, so one Mapper belongs to one tracking session.
type Mapper struct {
	transforms Transforms
	monitors   []Monitor

	mu     sync.Mutex
	active int
}

// NewMapper creates a mapper over monitors, starting on the first one.
func NewMapper(transforms Transforms, monitors []Monitor) (*Mapper, error) {
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}
	ms := make([]Monitor, len(monitors))
	copy(ms, monitors)
	return &Mapper{transforms: transforms, monitors: ms}, nil
}

// Monitors returns the monitors in enumeration order.
func (m *Mapper) Monitors() []Monitor {
	out := make([]Monitor, len(m.monitors))
	copy(out, m.monitors)
	return out
}

// Active returns the currently active monitor.
func (m *Mapper) Active() Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitors[m.active]
}

// Monitor looks a monitor up by id.
func (m *Mapper) Monitor(id string) (Monitor, error) {
	for _, mon := range m.monitors {
		if mon.ID == id {
			return mon, nil
		}
	}
	return Monitor{}, fmt.Errorf("%w: %q", ErrUnknownMonitor, id)
}

// ToScreen applies the transform stored for monitorID to a raw gaze point.
// The result is in desktop coordinates. A missing or unreadable transform
// is reported as ErrNotCalibrated.
func (m *Mapper) ToScreen(gaze geom.Point, monitorID string) (geom.Point, error) {
	h, err := m.transforms.Get(monitorID)
	if err != nil {
		if errors.Is(err, homography.ErrNotFound) {
			return geom.Point{}, fmt.Errorf("%w: %s", ErrNotCalibrated, monitorID)
		}
		return geom.Point{}, fmt.Errorf("%w: %s: %v", ErrNotCalibrated, monitorID, err)
	}
	return h.Apply(gaze)
}

// SelectActive scans the monitors in order and makes the first one containing
// p active. When none contains p the previous active monitor is kept.
func (m *Mapper) SelectActive(p geom.Point) Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mon := range m.monitors {
		if mon.Contains(p) {
			m.active = i
			return mon
		}
	}
	return m.monitors[m.active]
}

// ToLocal converts p to coordinates local to mon, clamped to its extent.
func (m *Mapper) ToLocal(p geom.Point, mon Monitor) geom.Point {
	return mon.ToLocal(p)
}

// Target is the outcome of mapping one gaze point.
type Target struct {
	Monitor Monitor    `json:"monitor"`
	Screen  geom.Point `json:"screen"`
	Local   geom.Point `json:"local"`
	Desktop geom.Point `json:"desktop"`
}

// Map runs the full chain for the active monitor: transform, monitor
// selection, localization and clamping. Desktop is what the pointer should
// be moved to.
func (m *Mapper) Map(gaze geom.Point) (Target, error) {
	cur := m.Active()
	p, err := m.ToScreen(gaze, cur.ID)
	if err != nil {
		return Target{Monitor: cur}, err
	}
	mon := m.SelectActive(p)
	local := m.ToLocal(p, mon)
	return Target{Monitor: mon, Screen: p, Local: local, Desktop: mon.ToDesktop(local)}, nil
}
