// Package calibration runs the guided procedure that collects gaze/screen
// correspondences over a target grid and fits the per-display transform.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// Persister stores a fitted transform. *homography.Cache satisfies it and
// replaces its cached entry for the display on save.
type Persister interface {
	Save(rec *homography.Record) error
}

// Engine runs calibrations. One Engine may be reused for many runs but runs
// must not overlap.
type Engine struct {
	cfg       Config
	sampler   *Sampler
	surface   Surface
	persister Persister
	logger    *slog.Logger

	mu        sync.Mutex
	listeners []Listener
	now       func() time.Time
}

// NewEngine wires an engine. source and surface are used for every run.
func NewEngine(cfg Config, source GazeSource, surface Surface, persister Persister) (*Engine, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return &Engine{
		cfg:       cfg,
		sampler:   NewSampler(source, surface, cfg.Window),
		surface:   surface,
		persister: persister,
		logger:    log.Component("calibration"),
		now:       time.Now,
	}, nil
}

// AddListener registers l for phase changes of subsequent runs.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

func (e *Engine) emit(ev PhaseEvent) {
	e.mu.Lock()
	ls := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

// Calibrate runs the full procedure on mon and persists the fitted transform,
// replacing any previous one for that display. On failure nothing is
// persisted; the returned error is also stored in Result.Err.
func (e *Engine) Calibrate(ctx context.Context, mon screen.Monitor) (Result, error) {
	res := Result{
		RunID:     uuid.New().String(),
		DisplayID: mon.ID,
		Phase:     PhaseIdle,
		StartedAt: e.now(),
	}
	logger := e.logger.With("run", res.RunID, "display", mon.ID)

	targets := Grid(mon, e.cfg.Fractions)
	total := len(targets)
	logger.Info("calibration started", "targets", total, "window", e.cfg.Window)

	phase := func(p Phase, i int, target geom.Point) {
		res.Phase = p
		e.emit(PhaseEvent{RunID: res.RunID, DisplayID: mon.ID, Phase: p, Index: i, Total: total, Target: target})
	}
	fail := func(err error) (Result, error) {
		res.Phase = PhaseFailed
		res.Err = err
		res.Error = err.Error()
		res.FinishedAt = e.now()
		e.emit(PhaseEvent{RunID: res.RunID, DisplayID: mon.ID, Phase: PhaseFailed, Index: -1, Total: total, Err: err.Error()})
		logger.Warn("calibration failed", "error", err, "points", len(res.Points))
		return res, err
	}

	for i, target := range targets {
		phase(PhaseDisplayingPoint, i, target)
		if err := e.surface.ShowTarget(mon, target, i, total); err != nil {
			return fail(fmt.Errorf("show target %d: %w", i, err))
		}

		phase(PhaseSampling, i, target)
		var samples []geom.Point
		for p, err := range e.sampler.Samples(ctx) {
			if err != nil {
				return fail(err)
			}
			samples = append(samples, p)
		}

		phase(PhaseAveraging, i, target)
		pt := Point{Target: target, Samples: len(samples)}
		if mean, ok := geom.Mean(samples); ok {
			pt.Observed = mean
		} else if e.cfg.Fallback {
			pt.Observed = target
			pt.Fallback = true
			res.Fallbacks++
			logger.Warn("no gaze samples for target, using target as observation", "index", i, "target", target)
		} else {
			logger.Warn("no gaze samples for target, skipping", "index", i, "target", target)
		}
		if pt.Samples > 0 || pt.Fallback {
			res.Points = append(res.Points, pt)
		}
		logger.Debug("target done", "index", i, "samples", pt.Samples, "observed", pt.Observed)

		if i < total-1 {
			phase(PhaseNextPoint, i, target)
		}
	}

	if len(res.Points) < e.cfg.MinPoints {
		return fail(fmt.Errorf("%w: %d of %d required", ErrInsufficientSamples, len(res.Points), e.cfg.MinPoints))
	}

	phase(PhaseFitting, -1, geom.Point{})
	src, dst := res.sources(), res.targets()
	m, err := homography.Fit(src, dst)
	if err != nil {
		return fail(fmt.Errorf("fit: %w", err))
	}
	res.Matrix = m
	if rms, err := homography.ReprojectionRMS(m, src, dst); err == nil {
		res.RMS = rms
	}

	rec := &homography.Record{
		DisplayID: mon.ID,
		RunID:     res.RunID,
		Matrix:    m,
		RMS:       res.RMS,
		Source:    src,
		Target:    dst,
	}
	if err := e.persister.Save(rec); err != nil {
		return fail(err)
	}

	res.FinishedAt = e.now()
	phase(PhasePersisted, -1, geom.Point{})
	logger.Info("calibration persisted",
		"points", len(res.Points),
		"fallbacks", res.Fallbacks,
		"rms", res.RMS,
		"duration", res.FinishedAt.Sub(res.StartedAt))
	return res, nil
}

// IsAbort reports whether err ended a run because the user aborted it.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted)
}
