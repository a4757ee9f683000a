package tracking

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/actuator"
	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// Session is the state of one tracking run: blink state, active monitor,
// pointer smoothing and the stop flag. Everything except the stop flag,
// tuning and Stats is owned by the goroutine running the frame loop.
type Session struct {
	ID        string
	StartedAt time.Time

	classifier *blink.Classifier
	mapper     *screen.Mapper
	pointer    actuator.Pointer
	dispatcher *blink.Dispatcher
	logger     *slog.Logger

	// Tuning
	mu     sync.RWMutex
	config Config

	stopped atomic.Bool

	// Frame loop state
	smoothed    geom.Point
	hasSmoothed bool
	lastMove    geom.Point
	hasMoved    bool
	warned      map[string]bool

	frames        atomic.Int64
	skipped       atomic.Int64
	blinks        atomic.Int64
	moves         atomic.Int64
	notCalibrated atomic.Int64
}

// NewSession creates a session that maps through mapper and acts on pointer.
func NewSession(id string, cfg Config, mapper *screen.Mapper, pointer actuator.Pointer) *Session {
	return &Session{
		ID:         id,
		StartedAt:  time.Now(),
		classifier: blink.NewClassifier(cfg.Sensitivity),
		mapper:     mapper,
		pointer:    pointer,
		dispatcher: blink.NewDispatcher(pointer),
		logger:     log.With("component", "tracking", "session", id),
		config:     cfg,
		warned:     make(map[string]bool),
	}
}

// Stop asks the frame loop to exit after the current frame.
func (s *Session) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// BlinkState returns a copy of the blink machine state.
func (s *Session) BlinkState() blink.State {
	return s.classifier.State()
}

// Sensitivity returns the blink parameters applied to the next blink.
func (s *Session) Sensitivity() blink.Sensitivity {
	return s.classifier.Sensitivity()
}

// SetSensitivity applies the non-zero fields of params to future blinks.
func (s *Session) SetSensitivity(params blink.Sensitivity) error {
	return s.classifier.SetSensitivity(params)
}

// ActiveMonitor returns the monitor the pointer is currently on.
func (s *Session) ActiveMonitor() screen.Monitor {
	return s.mapper.Active()
}

func (s *Session) tuning() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// smooth applies exponential smoothing to the raw gaze point.
func (s *Session) smooth(p geom.Point, alpha float64) geom.Point {
	if !s.hasSmoothed || alpha >= 1 {
		s.smoothed, s.hasSmoothed = p, true
		return p
	}
	s.smoothed = geom.Point{
		X: alpha*p.X + (1-alpha)*s.smoothed.X,
		Y: alpha*p.Y + (1-alpha)*s.smoothed.Y,
	}
	return s.smoothed
}

// shouldMove applies the dead zone to a pointer target.
func (s *Session) shouldMove(p geom.Point, deadZone float64) bool {
	if s.hasMoved && deadZone > 0 && geom.Dist(p, s.lastMove) < deadZone {
		return false
	}
	s.lastMove, s.hasMoved = p, true
	return true
}

// warnNotCalibrated logs the first NotCalibrated frame per display.
func (s *Session) warnNotCalibrated(display string, err error) {
	if s.warned[display] {
		return
	}
	s.warned[display] = true
	s.logger.Warn("display not calibrated, pointer will not move", "display", display, "error", err)
}

// Stats is a snapshot of session counters.
type Stats struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Frames        int64     `json:"frames"`
	Skipped       int64     `json:"skipped"`
	Blinks        int64     `json:"blinks"`
	Moves         int64     `json:"moves"`
	NotCalibrated int64     `json:"not_calibrated"`
	Monitor       string    `json:"monitor"`
	Blinking      bool      `json:"blinking"`
	Stopped       bool      `json:"stopped"`
}

// Stats returns the current counters.
func (s *Session) Stats() Stats {
	return Stats{
		ID:            s.ID,
		StartedAt:     s.StartedAt,
		Frames:        s.frames.Load(),
		Skipped:       s.skipped.Load(),
		Blinks:        s.blinks.Load(),
		Moves:         s.moves.Load(),
		NotCalibrated: s.notCalibrated.Load(),
		Monitor:       s.mapper.Active().ID,
		Blinking:      s.classifier.State().Blinking,
		Stopped:       s.Stopped(),
	}
}
