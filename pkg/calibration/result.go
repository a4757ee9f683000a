package calibration

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
)

// Point pairs a screen target with the gaze observed while it was shown.
type Point struct {
	Target   geom.Point `json:"screen_target"`
	Observed geom.Point `json:"observed_gaze"`
	Samples  int        `json:"samples"`
	// Fallback marks a target that produced no samples and uses its own
	// coordinate as the observation.
	Fallback bool `json:"fallback,omitempty"`
}

// Result is the outcome of one calibration run for one display.
type Result struct {
	RunID      string            `json:"run_id"`
	DisplayID  string            `json:"display_id"`
	Points     []Point           `json:"points"`
	Fallbacks  int               `json:"fallbacks"`
	Matrix     homography.Matrix `json:"matrix"`
	RMS        float64           `json:"rms"`
	Phase      Phase             `json:"phase"`
	Err        error             `json:"-"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// OK reports whether the run persisted a transform.
func (r Result) OK() bool {
	return r.Phase == PhasePersisted
}

func (r Result) sources() []geom.Point {
	out := make([]geom.Point, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Observed
	}
	return out
}

func (r Result) targets() []geom.Point {
	out := make([]geom.Point, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Target
	}
	return out
}
