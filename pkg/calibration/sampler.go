package calibration

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// GazeSource pulls one live raw gaze estimate. It returns eye.ErrDetectionAbsent
// (or eye.ErrDegenerateGeometry) when the current frame has no usable eyes;
// any other error ends the run.
type GazeSource interface {
	Gaze(ctx context.Context) (geom.Point, error)
}

// Signal is a user input read from the display surface.
type Signal int

const (
	SignalNone Signal = iota
	SignalConfirm
	SignalAbort
)

// Surface presents calibration targets and reports confirm/abort input.
type Surface interface {
	ShowTarget(mon screen.Monitor, target geom.Point, index, total int) error
	// Poll returns pending user input without blocking.
	Poll() Signal
}

// Hider is implemented by surfaces that can be dismissed after a run.
type Hider interface {
	Hide()
}

// Sampler produces the samples for one calibration target.
type Sampler struct {
	source  GazeSource
	surface Surface
	window  time.Duration
	now     func() time.Time
}

// NewSampler creates a sampler bounded by window.
func NewSampler(source GazeSource, surface Surface, window time.Duration) *Sampler {
	return &Sampler{source: source, surface: surface, window: window, now: time.Now}
}

// Samples returns a finite sequence of gaze samples. Each call starts a fresh
// window; the sequence ends when the window elapses or the user confirms.
// Abort, cancellation and gaze source failures are yielded as a final error.
// Frames without usable eyes are skipped.
func (s *Sampler) Samples(ctx context.Context) iter.Seq2[geom.Point, error] {
	return func(yield func(geom.Point, error) bool) {
		deadline := s.now().Add(s.window)
		for {
			if err := ctx.Err(); err != nil {
				yield(geom.Point{}, err)
				return
			}
			switch s.surface.Poll() {
			case SignalConfirm:
				return
			case SignalAbort:
				yield(geom.Point{}, ErrAborted)
				return
			}
			if !s.now().Before(deadline) {
				return
			}

			p, err := s.source.Gaze(ctx)
			switch {
			case err == nil:
				if !p.Finite() {
					continue
				}
				if !yield(p, nil) {
					return
				}
			case errors.Is(err, eye.ErrDetectionAbsent), errors.Is(err, eye.ErrDegenerateGeometry):
				continue
			default:
				yield(geom.Point{}, err)
				return
			}
		}
	}
}
