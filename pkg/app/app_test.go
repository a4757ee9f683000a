package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

func TestNew_MissingDependencies(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Fatal("expected an error for missing dependencies")
	}
}

func TestStartTracking_RunsUntilEndOfStream(t *testing.T) {
	f := newFixture(t, func() *frameSource { return &frameSource{frames: 5} })

	h, err := f.app.StartTracking(context.Background(), "")
	if err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	if h.ID == "" || h.Device != "0" {
		t.Errorf("unexpected handle %+v", h)
	}
	if err := f.app.Wait(context.Background(), h.ID); err != nil {
		t.Errorf("Wait: %v", err)
	}
	waitIdle(t, f.app)

	if !f.sources[0].closed.Load() {
		t.Error("expected the camera to be closed")
	}
	if got := f.pointer.Position(); got != geom.Pt(100, 100) {
		t.Errorf("pointer at %v, want (100,100)", got)
	}
	var started, stopped int
	for _, ev := range f.events.all() {
		if te, ok := ev.(tracking.Event); ok {
			switch te.Type {
			case tracking.EventStarted:
				started++
			case tracking.EventStopped:
				stopped++
			}
		}
	}
	if started != 1 || stopped != 1 {
		t.Errorf("expected one start and one stop event, got %d and %d", started, stopped)
	}
}

func TestStartTracking_SeesCalibrationWrittenElsewhere(t *testing.T) {
	f := newFixture(t, func() *frameSource { return &frameSource{frames: 5} })
	ctx := context.Background()

	runSession := func() {
		t.Helper()
		h, err := f.app.StartTracking(ctx, "")
		if err != nil {
			t.Fatalf("StartTracking: %v", err)
		}
		if err := f.app.Wait(ctx, h.ID); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		waitIdle(t, f.app)
	}

	runSession()
	if got := f.pointer.Position(); got != geom.Pt(100, 100) {
		t.Fatalf("first session: pointer at %v, want (100,100)", got)
	}

	// Another process recalibrates display 0 between sessions.
	other, err := homography.NewStore(f.store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	shift := homography.Matrix{1, 0, 50, 0, 1, 50, 0, 0, 1}
	if err := other.Save(&homography.Record{DisplayID: "0", Matrix: shift}); err != nil {
		t.Fatal(err)
	}

	runSession()
	if got := f.pointer.Position(); got != geom.Pt(150, 150) {
		t.Errorf("second session: pointer at %v, want (150,150)", got)
	}
}

func TestModesAreExclusive(t *testing.T) {
	f := newFixture(t, endless)
	ctx := context.Background()

	h, err := f.app.StartTracking(ctx, "dir:frames")
	if err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	if f.app.Mode() != ModeTracking {
		t.Errorf("expected tracking mode, got %s", f.app.Mode())
	}
	if _, err := f.app.StartTracking(ctx, ""); !errors.Is(err, ErrBusy) {
		t.Errorf("second session: expected ErrBusy, got %v", err)
	}
	if _, err := f.app.RunCalibration(ctx, ""); !errors.Is(err, ErrBusy) {
		t.Errorf("calibration while tracking: expected ErrBusy, got %v", err)
	}
	if n := len(f.app.Sessions()); n != 1 {
		t.Errorf("expected one session, got %d", n)
	}

	if err := f.app.StopTracking(ctx, h.ID); err != nil {
		t.Fatalf("StopTracking: %v", err)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("expected idle after stop, got %s", f.app.Mode())
	}
	if err := f.app.StopTracking(ctx, h.ID); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("expected ErrUnknownSession, got %v", err)
	}
}

func TestStartTracking_OpenFailureReleasesMode(t *testing.T) {
	f := newFixture(t, func() *frameSource { return nil })

	if _, err := f.app.StartTracking(context.Background(), ""); !errors.Is(err, camera.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("expected idle, got %s", f.app.Mode())
	}
}

func TestCaptureFailureEndsSession(t *testing.T) {
	f := newFixture(t, func() *frameSource { return &frameSource{frames: 2, err: errUnplugged} })

	h, err := f.app.StartTracking(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	err = f.app.Wait(context.Background(), h.ID)
	if !errors.Is(err, camera.ErrCaptureUnavailable) {
		t.Errorf("expected ErrCaptureUnavailable, got %v", err)
	}
	waitIdle(t, f.app)
}

func TestShutdownStopsSessions(t *testing.T) {
	f := newFixture(t, endless)
	if _, err := f.app.StartTracking(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.app.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(f.app.Sessions()) != 0 {
		t.Error("expected no sessions after shutdown")
	}
}

func TestSetSensitivity(t *testing.T) {
	f := newFixture(t, endless)
	ctx := context.Background()
	h, err := f.app.StartTracking(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	defer f.app.StopTracking(ctx, h.ID)

	before := f.app.Tuning()
	if err := f.app.SetSensitivity(tracking.TuningParams{LongBlinkDuration: 0.1}); err == nil {
		t.Fatal("expected long duration below single duration to be rejected")
	}
	if f.app.Tuning() != before {
		t.Error("rejected update changed tuning")
	}

	if err := f.app.SetSensitivity(tracking.TuningParams{BlinkThreshold: 0.3}); err != nil {
		t.Fatal(err)
	}
	if got := f.app.Tuning().BlinkThreshold; got != 0.3 {
		t.Errorf("app threshold %v, want 0.3", got)
	}
	f.app.mu.Lock()
	session := f.app.sessions[h.ID].session
	f.app.mu.Unlock()
	if got := session.Sensitivity().Threshold; got != 0.3 {
		t.Errorf("session threshold %v, want 0.3", got)
	}
}

func TestRunCalibration_AllDisplays(t *testing.T) {
	f := newFixture(t, endless)
	f.app.deps.Metrics = metrics.NewManager()

	results, err := f.app.RunCalibration(context.Background(), "")
	if err != nil {
		t.Fatalf("RunCalibration: %v", err)
	}
	if len(results) != 2 || !results[0].OK() || !results[1].OK() {
		t.Fatalf("expected two persisted runs, got %+v", results)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("expected idle after calibration, got %s", f.app.Mode())
	}
	if !f.sources[0].closed.Load() {
		t.Error("expected the camera to be closed")
	}

	if f.surface.hidden != 1 {
		t.Errorf("expected the surface hidden once after the run, got %d", f.surface.hidden)
	}

	rec, err := f.app.Transform("1")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	p, err := rec.Matrix.Apply(geom.Pt(60, 20))
	if err != nil || math.Abs(p.X-600) > 1e-6 || math.Abs(p.Y-200) > 1e-6 {
		t.Errorf("display 1 maps (60,20) to %v (%v), want (600,200)", p, err)
	}

	mons, err := f.app.Monitors()
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range mons {
		if !m.Calibrated {
			t.Errorf("display %s not calibrated", m.ID)
		}
	}

	persisted := 0
	for _, ev := range f.events.all() {
		if ce, ok := ev.(CalibrationEvent); ok && ce.Type == EventCalibration && ce.Phase == calibration.PhasePersisted {
			persisted++
		}
	}
	if persisted != 2 {
		t.Errorf("expected two persisted events, got %d", persisted)
	}
}

func TestStartCalibration_ClaimsModeBeforeRunning(t *testing.T) {
	f := newFixture(t, endless)

	run, err := f.app.StartCalibration("1")
	if err != nil {
		t.Fatalf("StartCalibration: %v", err)
	}
	if f.app.Mode() != ModeCalibrating {
		t.Errorf("expected calibrating before the run starts, got %s", f.app.Mode())
	}
	if _, err := f.app.StartCalibration(""); !errors.Is(err, ErrBusy) {
		t.Errorf("second calibration: expected ErrBusy, got %v", err)
	}

	results, err := run(context.Background())
	if err != nil || len(results) != 1 || !results[0].OK() {
		t.Fatalf("run: %+v, %v", results, err)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("expected idle after the run, got %s", f.app.Mode())
	}
	st := f.app.Status()
	if st.Calibration == nil || !st.Calibration.Done || st.Calibration.DisplayID != "1" ||
		st.Calibration.Phase != calibration.PhasePersisted {
		t.Errorf("progress: got %+v", st.Calibration)
	}

	if _, err := f.app.StartCalibration("7"); !errors.Is(err, screen.ErrUnknownMonitor) {
		t.Errorf("expected ErrUnknownMonitor, got %v", err)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("unknown display must release the mode, got %s", f.app.Mode())
	}
}

func TestRunCalibration_AbortKeepsPriorTransform(t *testing.T) {
	f := newFixture(t, endless)
	f.surface.abortAt = 0

	results, err := f.app.RunCalibration(context.Background(), "")
	if !errors.Is(err, calibration.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected the run to stop at the first display, got %d results", len(results))
	}
	if rec, err := f.store.Load("0"); err != nil || rec.Matrix != homography.Identity() {
		t.Errorf("prior transform lost: %+v %v", rec, err)
	}
	if _, err := f.app.Transform("1"); !errors.Is(err, homography.ErrNotFound) {
		t.Errorf("expected display 1 to stay uncalibrated, got %v", err)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("expected idle after abort, got %s", f.app.Mode())
	}
}

func TestRunCalibration_Errors(t *testing.T) {
	f := newFixture(t, endless)
	if _, err := f.app.RunCalibration(context.Background(), "7"); !errors.Is(err, screen.ErrUnknownMonitor) {
		t.Errorf("expected ErrUnknownMonitor, got %v", err)
	}

	f.app.deps.Surface = nil
	if _, err := f.app.RunCalibration(context.Background(), "0"); !errors.Is(err, ErrNoSurface) {
		t.Errorf("expected ErrNoSurface, got %v", err)
	}
	if f.app.Mode() != ModeIdle {
		t.Errorf("expected idle, got %s", f.app.Mode())
	}
}

func TestDeleteCalibration(t *testing.T) {
	f := newFixture(t, endless)

	if err := f.app.DeleteCalibration("0"); err != nil {
		t.Fatal(err)
	}
	mons, err := f.app.Monitors()
	if err != nil {
		t.Fatal(err)
	}
	if mons[0].Calibrated {
		t.Error("expected display 0 to be uncalibrated after delete")
	}
}
