package app

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/actuator"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// frameSource yields blank frames. frames < 0 means endless; after the last
// frame it returns err, or io.EOF when err is nil.
type frameSource struct {
	mu     sync.Mutex
	frames int
	err    error
	closed atomic.Bool
}

func (s *frameSource) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.frames == 0 && s.err != nil:
		return nil, s.err
	case s.frames == 0:
		return nil, io.EOF
	case s.frames > 0:
		s.frames--
	default:
		time.Sleep(time.Millisecond)
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func (s *frameSource) Close() error {
	s.closed.Store(true)
	return nil
}

// gazeProvider reports one face whose eye centroids straddle gaze().
type gazeProvider struct {
	gaze func() geom.Point
}

func (p gazeProvider) DetectFaces(image.Image) ([]detection.Face, error) {
	return []detection.Face{{W: 100, H: 100, Confidence: 0.9}}, nil
}

func (p gazeProvider) Landmarks(image.Image, detection.Face) (eye.LandmarkSet, error) {
	g := p.gaze()
	set := make(eye.LandmarkSet, 68)
	copy(set[36:42], eyeContour(g.X-40, g.Y))
	copy(set[42:48], eyeContour(g.X+10, g.Y))
	return set, nil
}

// eyeContour is an open eye with corners 30px apart and centroid (x+15, y).
func eyeContour(x, y float64) []geom.Point {
	return []geom.Point{
		{X: x, Y: y},
		{X: x + 10, Y: y - 5},
		{X: x + 20, Y: y - 5},
		{X: x + 30, Y: y},
		{X: x + 20, Y: y + 5},
		{X: x + 10, Y: y + 5},
	}
}

// mockSurface confirms each target after confirmAfter polls and aborts the
// target at abortAt.
type mockSurface struct {
	mu           sync.Mutex
	target       geom.Point
	index        int
	polls        int
	confirmAfter int
	abortAt      int
	hidden       int
}

func (s *mockSurface) Hide() {
	s.mu.Lock()
	s.hidden++
	s.mu.Unlock()
}

func (s *mockSurface) ShowTarget(_ screen.Monitor, target geom.Point, index, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target, s.index, s.polls = target, index, 0
	return nil
}

func (s *mockSurface) Poll() calibration.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.abortAt >= 0 && s.index == s.abortAt {
		return calibration.SignalAbort
	}
	if s.polls >= s.confirmAfter {
		return calibration.SignalConfirm
	}
	return calibration.SignalNone
}

// current returns the shown target scaled down by ten.
func (s *mockSurface) current() geom.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return geom.Pt(s.target.X/10, s.target.Y/10)
}

type eventLog struct {
	mu     sync.Mutex
	events []any
}

func (l *eventLog) add(ev any) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) all() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any(nil), l.events...)
}

type fixture struct {
	app     *App
	store   *homography.Store
	pointer *actuator.Mock
	surface *mockSurface
	events  *eventLog
	sources []*frameSource
	next    func() *frameSource
}

var twoMonitors = screen.StaticEnumerator{
	{ID: "0", Width: 400, Height: 400},
	{ID: "1", Origin: geom.Pt(400, 0), Width: 400, Height: 400},
}

// newFixture builds an app whose camera opener hands out sources made by
// next. Display "0" is calibrated with the identity transform.
func newFixture(t *testing.T, next func() *frameSource) *fixture {
	t.Helper()
	store, err := homography.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		store:   store,
		pointer: actuator.NewMock(),
		surface: &mockSurface{confirmAfter: 4, abortAt: -1},
		events:  &eventLog{},
		next:    next,
	}
	if err := f.store.Save(&homography.Record{DisplayID: "0", Matrix: homography.Identity()}); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Calibration.Window = time.Second
	var mu sync.Mutex
	f.app, err = New(cfg, Deps{
		Monitors:   twoMonitors,
		Transforms: f.store,
		Open: func(device string) (camera.Source, error) {
			mu.Lock()
			defer mu.Unlock()
			src := f.next()
			if src == nil {
				return nil, camera.ErrCaptureUnavailable
			}
			f.sources = append(f.sources, src)
			return src, nil
		},
		Provider: gazeProvider{gaze: func() geom.Point {
			if g := f.surface.current(); g != (geom.Point{}) {
				return g
			}
			return geom.Pt(100, 100)
		}},
		Pointer: f.pointer,
		Surface: f.surface,
		Events:  f.events.add,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func endless() *frameSource { return &frameSource{frames: -1} }

func waitIdle(t *testing.T, a *App) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.Mode() != ModeIdle {
		if time.Now().After(deadline) {
			t.Fatalf("app still %s", a.Mode())
		}
		time.Sleep(time.Millisecond)
	}
}

var errUnplugged = errors.New("unplugged")
