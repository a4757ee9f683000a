package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// SessionHandle identifies a running tracking session.
type SessionHandle struct {
	ID        string    `json:"id"`
	Device    string    `json:"device"`
	StartedAt time.Time `json:"started_at"`
}

// StartTracking opens device (the configured default when empty) and runs
// the frame loop on its own goroutine until StopTracking, end of stream or a
// capture failure. The session outlives ctx; only its values are kept.
func (a *App) StartTracking(ctx context.Context, device string) (SessionHandle, error) {
	if err := a.acquire(ModeTracking); err != nil {
		return SessionHandle{}, err
	}
	started := false
	defer func() {
		if !started {
			a.release()
		}
	}()

	if device == "" {
		device = a.config.Device
	}
	monitors, err := a.deps.Monitors.Monitors()
	if err != nil {
		return SessionHandle{}, fmt.Errorf("enumerate monitors: %w", err)
	}
	// Transforms are read once per session; a new session sees new calibrations.
	transforms := homography.NewCache(a.deps.Transforms)
	mapper, err := screen.NewMapper(transforms, monitors)
	if err != nil {
		return SessionHandle{}, err
	}
	source, err := a.deps.Open(device)
	if err != nil {
		return SessionHandle{}, err
	}

	a.mu.Lock()
	cfg := a.tuning
	a.mu.Unlock()

	id := uuid.NewString()
	session := tracking.NewSession(id, cfg, mapper, a.deps.Pointer)
	pipeline := tracking.NewPipeline(a.deps.Provider)
	if a.deps.Metrics != nil {
		pipeline.SetRecorder(a.deps.Metrics)
	}
	pipeline.SetEventSink(func(ev tracking.Event) { a.deps.Events(ev) })
	tracker := tracking.NewTracker(source, pipeline, session)
	if a.deps.Preview != nil {
		tracker.SetPreview(a.deps.Preview)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		handle:     SessionHandle{ID: id, Device: device, StartedAt: session.StartedAt},
		session:    session,
		source:     source,
		transforms: transforms,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	a.mu.Lock()
	a.sessions[id] = r
	a.mu.Unlock()
	started = true

	if a.deps.Metrics != nil {
		a.deps.Metrics.SessionStarted()
	}
	a.logger.Info("tracking session started", "session", id, "device", device, "monitors", len(monitors))
	go a.track(runCtx, r, tracker)
	return r.handle, nil
}

// track runs the frame loop and tears the session down when it exits.
func (a *App) track(ctx context.Context, r *run, tracker *tracking.Tracker) {
	var err error
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("tracking panic", "session", r.handle.ID, "error", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("tracking panic: %v", p)
		}
		r.cancel()
		if cerr := r.source.Close(); cerr != nil {
			a.logger.Warn("closing camera failed", "session", r.handle.ID, "error", cerr)
		}
		if a.deps.Metrics != nil {
			a.deps.Metrics.SessionStopped()
		}

		a.mu.Lock()
		r.err = err
		delete(a.sessions, r.handle.ID)
		a.ended = append(a.ended, r)
		if len(a.ended) > maxEnded {
			a.ended = a.ended[1:]
		}
		if len(a.sessions) == 0 && a.mode == ModeTracking {
			a.mode = ModeIdle
		}
		a.mu.Unlock()
		close(r.done)
	}()

	err = tracker.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, camera.ErrCaptureUnavailable):
		a.logger.Error("tracking session ended by capture failure", "session", r.handle.ID, "error", err)
	default:
		a.logger.Warn("tracking session ended", "session", r.handle.ID, "error", err)
	}
}

// StopTracking asks the session to stop after its current frame and waits
// for it to exit. When ctx expires first the camera read is cancelled.
func (a *App) StopTracking(ctx context.Context, id string) error {
	a.mu.Lock()
	r, ok := a.sessions[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	r.session.Stop()
	return a.wait(ctx, r)
}

func (a *App) lookup(id string) (*run, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.sessions[id]; ok {
		return r, true
	}
	for _, r := range a.ended {
		if r.handle.ID == id {
			return r, true
		}
	}
	return nil, false
}

func (a *App) wait(ctx context.Context, r *run) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.cancel()
		<-r.done
		return ctx.Err()
	}
}

// Wait blocks until the session exits and returns the error that ended it.
// Recently ended sessions are remembered.
func (a *App) Wait(ctx context.Context, id string) error {
	r, ok := a.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetSensitivity applies the non-zero fields of params to running sessions
// and to sessions started later. An update that leaves the blink parameters
// inconsistent is rejected and changes nothing.
func (a *App) SetSensitivity(params tracking.TuningParams) error {
	a.mu.Lock()
	next := tracking.ApplyTuning(a.tuning, params)
	if err := next.Sensitivity.Validate(); err != nil {
		a.mu.Unlock()
		return err
	}
	a.tuning = next
	runs := make([]*run, 0, len(a.sessions))
	for _, r := range a.sessions {
		runs = append(runs, r)
	}
	a.mu.Unlock()

	for _, r := range runs {
		if err := r.session.SetTuningParams(params); err != nil {
			return fmt.Errorf("session %s: %w", r.handle.ID, err)
		}
	}
	a.logger.Info("sensitivity updated", "threshold", next.Sensitivity.Threshold,
		"single_max", next.Sensitivity.SingleMax, "long_min", next.Sensitivity.LongMin)
	return nil
}

// Tuning returns the parameters new sessions start with.
func (a *App) Tuning() tracking.TuningParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	return tracking.TuningFromConfig(a.tuning)
}

// Sessions returns the counters of every live session, oldest first.
func (a *App) Sessions() []tracking.Stats {
	a.mu.Lock()
	stats := make([]tracking.Stats, 0, len(a.sessions))
	for _, r := range a.sessions {
		stats = append(stats, r.session.Stats())
	}
	a.mu.Unlock()
	sortStats(stats)
	return stats
}
