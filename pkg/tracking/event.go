package tracking

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Event types published by a session
const (
	EventGaze          = "gaze"
	EventBlink         = "blink"
	EventNotCalibrated = "not_calibrated"
	EventStarted       = "session_started"
	EventStopped       = "session_stopped"
)

// Event is a notification about a tracking session, published to the live
// event stream.
type Event struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id"`
	At        time.Time    `json:"at"`
	Monitor   string       `json:"monitor,omitempty"`
	Gaze      *geom.Point  `json:"gaze,omitempty"`
	Pointer   *geom.Point  `json:"pointer,omitempty"`
	Blink     *blink.Event `json:"blink,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// EventType names the event for stream subscribers.
func (e Event) EventType() string {
	return e.Type
}

// EventSink receives session events. It is called on the tracking goroutine
// and must not block.
type EventSink func(Event)

// Recorder receives per-frame measurements. metrics.Manager implements it.
type Recorder interface {
	FrameProcessed(d time.Duration)
	FrameSkipped(reason string)
	BlinkDetected(kind string)
	NotCalibrated(display string)
}

type nopRecorder struct{}

func (nopRecorder) FrameProcessed(time.Duration) {}
func (nopRecorder) FrameSkipped(string)          {}
func (nopRecorder) BlinkDetected(string)         {}
func (nopRecorder) NotCalibrated(string)         {}

// Skip reasons reported to the Recorder
const (
	SkipDetectorError = "detector_error"
	SkipNoFace        = "no_face"
	SkipNoLandmarks   = "no_landmarks"
	SkipNoEyes        = "no_eyes"
)
