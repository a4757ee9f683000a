package tracking

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/blink"
)

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the control API without restarting a session.
type TuningParams struct {
	// Blink classification
	BlinkThreshold    float64 `json:"blink_threshold"`     // Eye aspect ratio below which eyes are closed
	BlinkDuration     float64 `json:"blink_duration"`      // Seconds; shorter blinks are single clicks
	LongBlinkDuration float64 `json:"long_blink_duration"` // Seconds; longer blinks are drags
	DragHold          float64 `json:"drag_hold"`           // Seconds the button is held for a drag

	// Pointer motion
	GazeSmoothing float64 `json:"gaze_smoothing"` // 0-1, 1 = raw gaze
	MoveDeadZone  float64 `json:"move_dead_zone"` // Pixels
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func duration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Sensitivity returns the blink part of p.
func (p TuningParams) Sensitivity() blink.Sensitivity {
	return blink.Sensitivity{
		Threshold: p.BlinkThreshold,
		SingleMax: duration(p.BlinkDuration),
		LongMin:   duration(p.LongBlinkDuration),
		DragHold:  duration(p.DragHold),
	}
}

// TuningFromConfig renders cfg as tuning parameters.
func TuningFromConfig(cfg Config) TuningParams {
	return TuningParams{
		BlinkThreshold:    cfg.Sensitivity.Threshold,
		BlinkDuration:     seconds(cfg.Sensitivity.SingleMax),
		LongBlinkDuration: seconds(cfg.Sensitivity.LongMin),
		DragHold:          seconds(cfg.Sensitivity.DragHold),
		GazeSmoothing:     cfg.GazeSmoothing,
		MoveDeadZone:      cfg.MoveDeadZone,
	}
}

// ApplyTuning returns cfg with the non-zero values of params applied.
// Blink parameters are merged but not validated here.
func ApplyTuning(cfg Config, params TuningParams) Config {
	cfg.Sensitivity = cfg.Sensitivity.Merge(params.Sensitivity())
	if params.GazeSmoothing > 0 {
		cfg.GazeSmoothing = clamp(params.GazeSmoothing, 0.0, 1.0)
	}
	if params.MoveDeadZone > 0 {
		cfg.MoveDeadZone = params.MoveDeadZone
	}
	return cfg
}

// GetTuningParams returns the session's current tuning parameters.
func (s *Session) GetTuningParams() TuningParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.config
	cfg.Sensitivity = s.classifier.Sensitivity()
	return TuningFromConfig(cfg)
}

// SetTuningParams updates tuning parameters at runtime.
// Only non-zero values are applied. An in-progress blink keeps the
// parameters it started with.
func (s *Session) SetTuningParams(params TuningParams) error {
	if err := s.classifier.SetSensitivity(params.Sensitivity()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := ApplyTuning(s.config, params)
	s.config.GazeSmoothing = next.GazeSmoothing
	s.config.MoveDeadZone = next.MoveDeadZone
	s.config.Sensitivity = s.classifier.Sensitivity()
	return nil
}
