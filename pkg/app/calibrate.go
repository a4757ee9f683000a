package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// CalibrationEvent is a calibration phase change published to the event stream.
type CalibrationEvent struct {
	Type string `json:"type"`
	calibration.PhaseEvent
}

// EventCalibration is the Type of every CalibrationEvent.
const EventCalibration = "calibration"

// EventType names the event for stream subscribers.
func (e CalibrationEvent) EventType() string {
	return e.Type
}

// CalibrationProgress is the last phase change of the current or most recent
// calibration.
type CalibrationProgress struct {
	calibration.PhaseEvent
	// Done is set once the display named by the event is finished.
	Done bool `json:"done"`
}

// CalibrateFunc runs a calibration claimed by StartCalibration.
type CalibrateFunc func(ctx context.Context) ([]calibration.Result, error)

// RunCalibration calibrates displayID, or every display in enumeration order
// when displayID is empty. A failed display does not stop the others; an
// abort or cancellation does. The results of every attempted display are
// returned along with the joined errors.
func (a *App) RunCalibration(ctx context.Context, displayID string) ([]calibration.Result, error) {
	run, err := a.StartCalibration(displayID)
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// StartCalibration claims the camera for a calibration of displayID and
// returns the function that performs it, so callers running it in the
// background still see ErrBusy and unknown displays synchronously. The
// returned function must be called exactly once; the application stays in
// calibrating mode until it returns.
func (a *App) StartCalibration(displayID string) (CalibrateFunc, error) {
	if a.deps.Surface == nil {
		return nil, ErrNoSurface
	}
	if err := a.acquire(ModeCalibrating); err != nil {
		return nil, err
	}
	monitors, err := a.calibrationTargets(displayID)
	if err != nil {
		a.release()
		return nil, err
	}
	return func(ctx context.Context) ([]calibration.Result, error) {
		defer a.release()
		return a.calibrate(ctx, monitors)
	}, nil
}

func (a *App) calibrationTargets(displayID string) ([]screen.Monitor, error) {
	monitors, err := a.deps.Monitors.Monitors()
	if err != nil {
		return nil, fmt.Errorf("enumerate monitors: %w", err)
	}
	if displayID == "" {
		return monitors, nil
	}
	mon, err := find(monitors, displayID)
	if err != nil {
		return nil, err
	}
	return []screen.Monitor{mon}, nil
}

func (a *App) calibrate(ctx context.Context, monitors []screen.Monitor) ([]calibration.Result, error) {
	source, err := a.deps.Open(a.config.Device)
	if err != nil {
		return nil, err
	}
	defer source.Close()
	if h, ok := a.deps.Surface.(calibration.Hider); ok {
		defer h.Hide()
	}

	a.mu.Lock()
	layout := a.tuning.Layout
	a.mu.Unlock()

	reader := tracking.NewGazeReader(source, a.deps.Provider, layout)
	engine, err := calibration.NewEngine(a.config.Calibration, reader, a.deps.Surface, a.deps.Transforms)
	if err != nil {
		return nil, err
	}
	engine.AddListener(func(ev calibration.PhaseEvent) {
		a.mu.Lock()
		a.progress = &CalibrationProgress{PhaseEvent: ev, Done: ev.Phase.Terminal()}
		a.mu.Unlock()
		a.deps.Events(CalibrationEvent{Type: EventCalibration, PhaseEvent: ev})
	})

	var (
		results []calibration.Result
		errs    []error
	)
	for _, mon := range monitors {
		res, err := engine.Calibrate(ctx, mon)
		results = append(results, res)
		a.recordCalibration(res, err)
		if err == nil {
			continue
		}
		if calibration.IsAbort(err) || ctx.Err() != nil {
			return results, err
		}
		errs = append(errs, fmt.Errorf("display %s: %w", mon.ID, err))
	}
	return results, errors.Join(errs...)
}

func (a *App) recordCalibration(res calibration.Result, err error) {
	if a.deps.Metrics == nil {
		return
	}
	outcome := metrics.OutcomePersisted
	switch {
	case calibration.IsAbort(err):
		outcome = metrics.OutcomeAborted
	case err != nil:
		outcome = metrics.OutcomeFailed
	}
	a.deps.Metrics.CalibrationFinished(res.DisplayID, outcome, res.RMS, len(res.Points), res.Fallbacks)
}

func find(monitors []screen.Monitor, id string) (screen.Monitor, error) {
	for _, m := range monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return screen.Monitor{}, fmt.Errorf("%w: %q", screen.ErrUnknownMonitor, id)
}

// Calibrations returns every persisted calibration, sorted by display id.
func (a *App) Calibrations() ([]*homography.Record, error) {
	return a.deps.Transforms.List()
}

// Transform returns the persisted calibration of displayID, or
// homography.ErrNotFound.
func (a *App) Transform(displayID string) (*homography.Record, error) {
	return a.deps.Transforms.Load(displayID)
}

// DeleteCalibration removes the persisted calibration of displayID. Running
// sessions stop moving the pointer on that display.
func (a *App) DeleteCalibration(displayID string) error {
	if err := a.deps.Transforms.Delete(displayID); err != nil {
		return err
	}
	a.mu.Lock()
	for _, r := range a.sessions {
		r.transforms.Invalidate(displayID)
	}
	a.mu.Unlock()
	a.logger.Info("calibration deleted", "display", displayID)
	return nil
}

// MonitorStatus is a monitor together with its calibration state.
type MonitorStatus struct {
	screen.Monitor
	Calibrated   bool      `json:"calibrated"`
	RMS          float64   `json:"rms,omitempty"`
	CalibratedAt time.Time `json:"calibrated_at,omitzero"`
}

// Monitors enumerates the displays and reports which are calibrated.
func (a *App) Monitors() ([]MonitorStatus, error) {
	monitors, err := a.deps.Monitors.Monitors()
	if err != nil {
		return nil, err
	}
	out := make([]MonitorStatus, len(monitors))
	for i, m := range monitors {
		out[i] = MonitorStatus{Monitor: m}
		rec, err := a.deps.Transforms.Load(m.ID)
		switch {
		case err == nil:
			out[i].Calibrated = true
			out[i].RMS = rec.RMS
			out[i].CalibratedAt = rec.CreatedAt
		case !errors.Is(err, homography.ErrNotFound):
			a.logger.Warn("reading calibration failed", "display", m.ID, "error", err)
		}
	}
	return out, nil
}
