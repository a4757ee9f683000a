package tracking

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// LandmarkProvider finds faces and their ordered landmarks in a frame.
// detection.Provider implements it.
type LandmarkProvider interface {
	DetectFaces(img image.Image) ([]detection.Face, error)
	Landmarks(img image.Image, face detection.Face) (eye.LandmarkSet, error)
}

// FrameResult describes what one frame did. It is returned for logging and tests.
type FrameResult struct {
	Face    bool
	Left    *eye.Region
	Right   *eye.Region
	Ratio   float64
	RatioOK bool
	Gaze    geom.Point
	GazeOK  bool
	Target  *screen.Target
	Moved   bool
	Blink   *blink.Event
	Skip    string // Skip reason, empty when the frame was processed
	Err     error  // Recoverable per-frame error
}

// Pipeline processes single frames for a session.
type Pipeline struct {
	provider LandmarkProvider
	recorder Recorder
	sink     EventSink
}

// NewPipeline creates a pipeline over provider.
func NewPipeline(provider LandmarkProvider) *Pipeline {
	return &Pipeline{provider: provider, recorder: nopRecorder{}, sink: func(Event) {}}
}

// SetRecorder sets the metrics recorder
func (p *Pipeline) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	p.recorder = r
}

// SetEventSink sets the event stream sink
func (p *Pipeline) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = func(Event) {}
	}
	p.sink = sink
}

// ProcessFrame runs detection, blink classification, gaze mapping and
// actuation for one frame, in that order. Per-frame problems are recorded in
// the result and never returned: a frame without a face is skipped without
// touching the blink state, and an uncalibrated display leaves the pointer
// where it is while blinks still act.
func (p *Pipeline) ProcessFrame(ctx context.Context, s *Session, frame image.Image, now time.Time) FrameResult {
	start := time.Now()
	var res FrameResult
	s.frames.Add(1)

	skip := func(reason string, err error) FrameResult {
		res.Skip, res.Err = reason, err
		s.skipped.Add(1)
		p.recorder.FrameSkipped(reason)
		return res
	}

	// Detection
	faces, err := p.provider.DetectFaces(frame)
	if err != nil {
		s.logger.Debug("face detection failed", "error", err)
		return skip(SkipDetectorError, err)
	}
	face := detection.SelectBest(faces)
	if face == nil {
		return skip(SkipNoFace, eye.ErrDetectionAbsent)
	}
	res.Face = true

	set, err := p.provider.Landmarks(frame, *face)
	if err != nil {
		return skip(SkipNoLandmarks, err)
	}
	cfg := s.tuning()
	left, right := cfg.Layout.Regions(set)
	res.Left, res.Right = left, right
	if left == nil && right == nil {
		return skip(SkipNoEyes, eye.ErrDetectionAbsent)
	}

	// Blink classification
	if ratio, err := eye.AverageRatio(left, right); err == nil {
		res.Ratio, res.RatioOK = ratio, true
		res.Blink = s.classifier.Observe(ratio, now)
	} else {
		res.Err = err
	}

	// Gaze mapping and pointer motion
	if gaze, ok := eye.GazePoint(left, right); ok {
		res.Gaze, res.GazeOK = gaze, true
		p.movePointer(s, cfg, gaze, now, &res)
	}

	// Blink actions
	if res.Blink != nil {
		p.actOnBlink(ctx, s, *res.Blink, &res)
	}

	p.recorder.FrameProcessed(time.Since(start))
	return res
}

func (p *Pipeline) movePointer(s *Session, cfg Config, gaze geom.Point, now time.Time, res *FrameResult) {
	smoothed := s.smooth(gaze, cfg.GazeSmoothing)
	tgt, err := s.mapper.Map(smoothed)
	if err != nil {
		if errors.Is(err, screen.ErrNotCalibrated) {
			s.notCalibrated.Add(1)
			p.recorder.NotCalibrated(tgt.Monitor.ID)
			if !s.warned[tgt.Monitor.ID] {
				p.sink(Event{Type: EventNotCalibrated, SessionID: s.ID, At: now, Monitor: tgt.Monitor.ID, Error: err.Error()})
			}
			s.warnNotCalibrated(tgt.Monitor.ID, err)
		} else {
			s.logger.Debug("gaze mapping failed", "error", err)
		}
		res.Err = err
		return
	}
	res.Target = &tgt

	if !s.shouldMove(tgt.Desktop, cfg.MoveDeadZone) {
		return
	}
	if err := s.pointer.MoveTo(tgt.Desktop); err != nil {
		s.logger.Warn("pointer move failed", "error", err)
		res.Err = err
		return
	}
	res.Moved = true
	s.moves.Add(1)

	g, d := smoothed, tgt.Desktop
	p.sink(Event{Type: EventGaze, SessionID: s.ID, At: now, Monitor: tgt.Monitor.ID, Gaze: &g, Pointer: &d})
}

func (p *Pipeline) actOnBlink(ctx context.Context, s *Session, ev blink.Event, res *FrameResult) {
	s.blinks.Add(1)
	p.recorder.BlinkDetected(ev.Kind.String())
	s.logger.Info("blink", "kind", ev.Kind, "duration", ev.Duration)
	p.sink(Event{Type: EventBlink, SessionID: s.ID, At: ev.At, Monitor: s.mapper.Active().ID, Blink: &ev})

	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		s.logger.Warn("blink action failed", "kind", ev.Kind, "error", err)
		res.Err = err
	}
}
