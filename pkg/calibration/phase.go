package calibration

import (
	"fmt"
	"slices"

	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Phase is a step of the calibration procedure.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDisplayingPoint
	PhaseSampling
	PhaseAveraging
	PhaseNextPoint
	PhaseFitting
	PhasePersisted
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:            "idle",
	PhaseDisplayingPoint: "displaying_point",
	PhaseSampling:        "sampling",
	PhaseAveraging:       "averaging",
	PhaseNextPoint:       "next_point",
	PhaseFitting:         "fitting",
	PhasePersisted:       "persisted",
	PhaseFailed:          "failed",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// MarshalText renders the phase by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	i := slices.Index(phaseNames[:], string(b))
	if i < 0 {
		return fmt.Errorf("calibration: unknown phase %q", b)
	}
	*p = Phase(i)
	return nil
}

// Terminal reports whether p ends a run.
func (p Phase) Terminal() bool {
	return p == PhasePersisted || p == PhaseFailed
}

// PhaseEvent is delivered to listeners on every phase change.
type PhaseEvent struct {
	RunID     string     `json:"run_id"`
	DisplayID string     `json:"display_id"`
	Phase     Phase      `json:"phase"`
	Index     int        `json:"index"` // target index, -1 outside the per-point phases
	Total     int        `json:"total"`
	Target    geom.Point `json:"target"`
	Err       string     `json:"error,omitempty"`
}

// Listener observes phase changes. Listeners run synchronously on the
// calibration goroutine and must not block.
type Listener func(PhaseEvent)
