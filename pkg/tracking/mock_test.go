package tracking

import (
	"context"
	"image"
	"io"
	"sync"
	"testing"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// step scripts what the provider sees in one frame. A nil set means no face.
type step struct {
	set eye.LandmarkSet
}

// mockProvider replays scripted steps, one per DetectFaces call.
type mockProvider struct {
	mu    sync.Mutex
	steps []step
	next  int
	cur   step
}

func (m *mockProvider) DetectFaces(image.Image) ([]detection.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.steps) {
		m.cur = step{}
	} else {
		m.cur = m.steps[m.next]
		m.next++
	}
	if m.cur.set == nil {
		return nil, nil
	}
	return []detection.Face{{W: 100, H: 100, Confidence: 0.9}}, nil
}

func (m *mockProvider) Landmarks(image.Image, detection.Face) (eye.LandmarkSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.set, nil
}

// eyeContour is a six-point eye with corners 30px apart and half-height v,
// so its aspect ratio is v/15 and its centroid is (x+15, y).
func eyeContour(x, y, v float64) []geom.Point {
	return []geom.Point{
		{X: x, Y: y},
		{X: x + 10, Y: y - v},
		{X: x + 20, Y: y - v},
		{X: x + 30, Y: y},
		{X: x + 20, Y: y + v},
		{X: x + 10, Y: y + v},
	}
}

// face68 builds a 68-point set whose gaze point is (cx, cy).
// Open eyes have ratio 0.33, closed ones 0.1.
func face68(cx, cy float64, open bool) eye.LandmarkSet {
	v := 1.5
	if open {
		v = 5
	}
	set := make(eye.LandmarkSet, 68)
	copy(set[36:42], eyeContour(cx-40, cy, v))
	copy(set[42:48], eyeContour(cx+10, cy, v))
	return set
}

func openAt(x, y float64) step { return step{set: face68(x, y, true)} }
func closedAt(x, y float64) step { return step{set: face68(x, y, false)} }

var noFace = step{}

// sliceSource yields n nil frames then io.EOF, or err if set.
type sliceSource struct {
	mu  sync.Mutex
	n   int
	err error
}

func (s *sliceSource) NextFrame(context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	s.n--
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

// eventLog collects sink events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) sink(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(typ string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// testMapper returns a mapper over one 1920x1080 display. When calibrated,
// display "0" gets the identity transform.
func testMapper(t *testing.T, calibrated bool) *screen.Mapper {
	t.Helper()
	store, err := homography.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if calibrated {
		if err := store.Save(&homography.Record{DisplayID: "0", Matrix: homography.Identity()}); err != nil {
			t.Fatal(err)
		}
	}
	m, err := screen.NewMapper(homography.NewCache(store), []screen.Monitor{{ID: "0", Width: 1920, Height: 1080}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}
