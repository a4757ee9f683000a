// Package app is the application orchestrator. It owns the calibration
// store, runs calibrations and tracking sessions, and keeps them from
// overlapping.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Mode is what the application is currently doing with the camera.
type Mode int

const (
	ModeIdle Mode = iota
	ModeTracking
	ModeCalibrating
)

var modeNames = [...]string{"idle", "tracking", "calibrating"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText renders the mode name in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	i := slices.Index(modeNames[:], string(b))
	if i < 0 {
		return fmt.Errorf("app: unknown mode %q", b)
	}
	*m = Mode(i)
	return nil
}

// App is the main application orchestrator.
type App struct {
	config Config
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	mode     Mode
	tuning   tracking.Config // applied to sessions started later
	sessions map[string]*run
	ended    []*run // most recent last
	progress *CalibrationProgress
}

const maxEnded = 8

// run is one live tracking session.
type run struct {
	handle     SessionHandle
	session    *tracking.Session
	source     camera.Source
	transforms *homography.Cache
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New creates an application. The required dependencies are checked here.
func New(cfg Config, deps Deps) (*App, error) {
	var missing []string
	if deps.Monitors == nil {
		missing = append(missing, "monitors")
	}
	if deps.Transforms == nil {
		missing = append(missing, "transforms")
	}
	if deps.Open == nil {
		missing = append(missing, "camera opener")
	}
	if deps.Provider == nil {
		missing = append(missing, "landmark provider")
	}
	if deps.Pointer == nil {
		missing = append(missing, "pointer")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("app: missing dependencies: %s", strings.Join(missing, ", "))
	}
	if err := cfg.Tracking.Sensitivity.Validate(); err != nil {
		return nil, err
	}
	if deps.Events == nil {
		deps.Events = func(any) {}
	}

	return &App{
		config:   cfg,
		deps:     deps,
		logger:   log.Component("app"),
		tuning:   cfg.Tracking,
		sessions: make(map[string]*run),
	}, nil
}

// Mode returns what the application is doing.
func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// acquire switches from idle to mode, or fails with ErrBusy.
func (a *App) acquire(mode Mode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != ModeIdle {
		return fmt.Errorf("%w: %s", ErrBusy, a.mode)
	}
	a.mode = mode
	return nil
}

func (a *App) release() {
	a.mu.Lock()
	a.mode = ModeIdle
	a.mu.Unlock()
}

// Status is a snapshot of the application state.
type Status struct {
	Mode        Mode                  `json:"mode"`
	Sessions    []tracking.Stats      `json:"sessions"`
	Tuning      tracking.TuningParams `json:"tuning"`
	Calibration *CalibrationProgress  `json:"calibration,omitempty"`
	Time        time.Time             `json:"time"`
}

// Status returns the current mode, live sessions, tuning and calibration
// progress.
func (a *App) Status() Status {
	st := Status{
		Mode:     a.Mode(),
		Sessions: a.Sessions(),
		Tuning:   a.Tuning(),
		Time:     time.Now(),
	}
	a.mu.Lock()
	if a.progress != nil {
		p := *a.progress
		st.Calibration = &p
	}
	a.mu.Unlock()
	return st
}

// Shutdown stops every tracking session and waits for them to exit or for
// ctx to expire.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	runs := make([]*run, 0, len(a.sessions))
	for _, r := range a.sessions {
		runs = append(runs, r)
	}
	a.mu.Unlock()

	for _, r := range runs {
		r.session.Stop()
	}
	for _, r := range runs {
		if err := a.wait(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func sortStats(stats []tracking.Stats) {
	slices.SortFunc(stats, func(a, b tracking.Stats) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
}
