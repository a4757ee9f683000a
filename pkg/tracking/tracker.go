package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/teslashibe/go-gaze/pkg/camera"
)

// FrameSource interface for capturing frames. camera.Source implements it.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
}

// Tracker runs the frame loop for one session
type Tracker struct {
	source   FrameSource
	pipeline *Pipeline
	session  *Session
	preview  Preview
	now      func() time.Time
}

// NewTracker creates a tracker that feeds frames from source through pipeline.
func NewTracker(source FrameSource, pipeline *Pipeline, session *Session) *Tracker {
	return &Tracker{source: source, pipeline: pipeline, session: session, now: time.Now}
}

// SetPreview shows processed frames on pv. pv runs on its own goroutine and
// only ever gets the newest frame, so a slow preview never holds up the loop.
func (t *Tracker) SetPreview(pv Preview) {
	t.preview = pv
}

// Session returns the tracked session.
func (t *Tracker) Session() *Session {
	return t.session
}

// Run processes frames one at a time until the session is stopped, the
// source ends, ctx is cancelled or capture fails. The stop flag is checked
// once per iteration and a frame that has been read is always processed to
// completion. A capture failure is returned wrapped in
// camera.ErrCaptureUnavailable; stop and end of stream return nil.
func (t *Tracker) Run(ctx context.Context) error {
	s := t.session
	s.logger.Info("tracking started")
	t.pipeline.sink(Event{Type: EventStarted, SessionID: s.ID, At: t.now(), Monitor: s.mapper.Active().ID})

	var frames chan shown
	presented := make(chan struct{})
	if t.preview != nil {
		frames = make(chan shown, 1)
		go t.present(frames, presented)
	} else {
		close(presented)
	}

	err := t.loop(ctx, frames)
	if frames != nil {
		close(frames)
	}
	<-presented

	ev := Event{Type: EventStopped, SessionID: s.ID, At: t.now()}
	if err != nil {
		ev.Error = err.Error()
	}
	t.pipeline.sink(ev)
	st := s.Stats()
	s.logger.Info("tracking stopped", "frames", st.Frames, "skipped", st.Skipped, "blinks", st.Blinks, "error", err)
	return err
}

func (t *Tracker) loop(ctx context.Context, frames chan shown) error {
	// Frames are processed without cancellation so an action in flight completes.
	frameCtx := context.WithoutCancel(ctx)
	for {
		if t.session.Stopped() {
			return nil
		}

		frame, err := t.source.NextFrame(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, camera.ErrCaptureUnavailable):
			return err
		default:
			return fmt.Errorf("%w: %v", camera.ErrCaptureUnavailable, err)
		}

		res := t.pipeline.ProcessFrame(frameCtx, t.session, frame, t.now())
		if frames != nil {
			offer(frames, shown{img: frame, ov: res.Overlay()})
		}
	}
}

// shown is a processed frame on its way to the preview.
type shown struct {
	img image.Image
	ov  Overlay
}

// offer queues s for the preview without blocking. A frame the preview has
// not picked up yet is replaced.
func offer(frames chan shown, s shown) {
	for {
		select {
		case frames <- s:
			return
		default:
		}
		select {
		case <-frames:
		default:
		}
	}
}

// present feeds the preview until frames is closed.
func (t *Tracker) present(frames <-chan shown, done chan<- struct{}) {
	defer close(done)
	for f := range frames {
		stop, err := t.preview.ShowFrame(f.img, f.ov)
		if err != nil {
			t.session.logger.Debug("preview failed", "error", err)
		}
		if stop && !t.session.Stopped() {
			t.session.logger.Info("preview closed")
			t.session.Stop()
		}
	}
}
