package calibration

import (
	"context"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// mockSurface confirms each target after confirmAfter polls and can abort
// on a chosen target.
type mockSurface struct {
	mu           sync.Mutex
	shown        []geom.Point
	current      int
	polls        int
	confirmAfter int
	abortAt      int // target index, -1 never
}

func newMockSurface(confirmAfter int) *mockSurface {
	return &mockSurface{confirmAfter: confirmAfter, abortAt: -1, current: -1}
}

func (s *mockSurface) ShowTarget(_ screen.Monitor, target geom.Point, index, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, target)
	s.current = index
	s.polls = 0
	return nil
}

func (s *mockSurface) Poll() Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.abortAt >= 0 && s.current == s.abortAt {
		return SignalAbort
	}
	if s.confirmAfter > 0 && s.polls >= s.confirmAfter {
		return SignalConfirm
	}
	return SignalNone
}

func (s *mockSurface) target() (int, geom.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 {
		return -1, geom.Point{}
	}
	return s.current, s.shown[len(s.shown)-1]
}

// mockGaze reports the shown target scaled down by ten, jittered by ±0.5 so
// that an even number of samples averages out exactly.
type mockGaze struct {
	surface *mockSurface
	blind   map[int]bool // target indexes with no detectable eyes
	err     error
	n       int
}

func (g *mockGaze) Gaze(context.Context) (geom.Point, error) {
	if g.err != nil {
		return geom.Point{}, g.err
	}
	i, t := g.surface.target()
	if g.blind[i] {
		return geom.Point{}, eye.ErrDetectionAbsent
	}
	g.n++
	d := 0.5
	if g.n%2 == 0 {
		d = -0.5
	}
	return geom.Pt(t.X/10+d, t.Y/10-d), nil
}
