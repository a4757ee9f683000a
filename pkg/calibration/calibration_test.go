package calibration

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// square400 yields the 2x2 grid (100,100) (300,100) (100,300) (300,300).
var square400 = screen.Monitor{ID: "0", Width: 400, Height: 400}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Fractions = []float64{0.25, 0.75}
	return cfg
}

func testEngine(t *testing.T, cfg Config, surface *mockSurface, gaze *mockGaze) (*Engine, *homography.Store) {
	t.Helper()
	store, err := homography.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(cfg, gaze, surface, store)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, store
}

func TestGrid(t *testing.T) {
	mon := screen.Monitor{ID: "1", Origin: geom.Pt(1920, 0), Width: 1366, Height: 768}
	got := Grid(mon, DefaultConfig().Fractions)
	if len(got) != 9 {
		t.Fatalf("expected 9 targets, got %d", len(got))
	}
	want := map[int]geom.Point{
		0: geom.Pt(1920+341, 192),
		1: geom.Pt(1920+683, 192),
		4: geom.Pt(1920+683, 384),
		8: geom.Pt(1920+1024, 576),
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("target %d: got %v, want %v", i, got[i], w)
		}
	}
}

func TestSampler_WindowAndRestart(t *testing.T) {
	surface := newMockSurface(0)
	surface.current = 0
	surface.shown = []geom.Point{geom.Pt(100, 100)}
	s := NewSampler(&mockGaze{surface: surface}, surface, 2*time.Second)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now := clock
		clock = clock.Add(500 * time.Millisecond)
		return now
	}

	for run := 0; run < 2; run++ {
		n := 0
		for _, err := range s.Samples(context.Background()) {
			if err != nil {
				t.Fatalf("run %d: %v", run, err)
			}
			n++
		}
		if n != 3 {
			t.Errorf("run %d: got %d samples, want 3", run, n)
		}
	}
}

func TestSampler_SourceFailure(t *testing.T) {
	boom := errors.New("camera gone")
	surface := newMockSurface(0)
	s := NewSampler(&mockGaze{surface: surface, err: boom}, surface, time.Second)

	var got error
	for _, err := range s.Samples(context.Background()) {
		got = err
	}
	if !errors.Is(got, boom) {
		t.Errorf("expected source error, got %v", got)
	}
}

func TestSampler_Cancelled(t *testing.T) {
	surface := newMockSurface(0)
	s := NewSampler(&mockGaze{surface: surface}, surface, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	for _, err := range s.Samples(ctx) {
		got = err
	}
	if !errors.Is(got, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", got)
	}
}

func TestEngine_Calibrate(t *testing.T) {
	surface := newMockSurface(5)
	e, store := testEngine(t, testConfig(), surface, &mockGaze{surface: surface})

	var phases []Phase
	e.AddListener(func(ev PhaseEvent) { phases = append(phases, ev.Phase) })

	res, err := e.Calibrate(context.Background(), square400)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if !res.OK() || res.RunID == "" || res.Fallbacks != 0 || len(res.Points) != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	for i, p := range res.Points {
		if p.Samples != 4 {
			t.Errorf("point %d: %d samples", i, p.Samples)
		}
	}

	rec, err := store.Load("0")
	if err != nil {
		t.Fatalf("stored transform: %v", err)
	}
	got, err := rec.Matrix.Apply(geom.Pt(20, 20))
	if err != nil || geom.Dist(got, geom.Pt(200, 200)) > 1e-6 {
		t.Errorf("Apply(20,20): got %v, %v", got, err)
	}
	if res.RMS > 1e-6 {
		t.Errorf("rms: got %v", res.RMS)
	}

	perPoint := []Phase{PhaseDisplayingPoint, PhaseSampling, PhaseAveraging}
	var want []Phase
	for i := 0; i < 4; i++ {
		want = append(want, perPoint...)
		if i < 3 {
			want = append(want, PhaseNextPoint)
		}
	}
	want = append(want, PhaseFitting, PhasePersisted)
	if !slices.Equal(phases, want) {
		t.Errorf("phases:\n got %v\nwant %v", phases, want)
	}
}

func TestEngine_FallbackIsFlagged(t *testing.T) {
	surface := newMockSurface(5)
	gaze := &mockGaze{surface: surface, blind: map[int]bool{1: true}}
	e, _ := testEngine(t, testConfig(), surface, gaze)

	res, err := e.Calibrate(context.Background(), square400)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if res.Fallbacks != 1 {
		t.Errorf("fallbacks: got %d", res.Fallbacks)
	}
	p := res.Points[1]
	if !p.Fallback || p.Samples != 0 || p.Observed != p.Target {
		t.Errorf("unexpected fallback point %+v", p)
	}
}

func TestEngine_InsufficientKeepsPrior(t *testing.T) {
	cfg := testConfig()
	cfg.Fallback = false
	surface := newMockSurface(5)
	gaze := &mockGaze{surface: surface, blind: map[int]bool{2: true}}
	e, store := testEngine(t, cfg, surface, gaze)

	prior := homography.Matrix{2, 0, 0, 0, 2, 0, 0, 0, 1}
	if err := store.Save(&homography.Record{DisplayID: "0", Matrix: prior}); err != nil {
		t.Fatal(err)
	}

	res, err := e.Calibrate(context.Background(), square400)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
	if res.Phase != PhaseFailed || len(res.Points) != 3 || !errors.Is(res.Err, ErrInsufficientSamples) {
		t.Errorf("unexpected result %+v", res)
	}

	if rec, err := store.Load("0"); err != nil || rec.Matrix != prior {
		t.Errorf("prior transform not kept: %+v, %v", rec, err)
	}
}

func TestEngine_Abort(t *testing.T) {
	surface := newMockSurface(5)
	surface.abortAt = 2
	e, store := testEngine(t, testConfig(), surface, &mockGaze{surface: surface})

	var last PhaseEvent
	e.AddListener(func(ev PhaseEvent) { last = ev })

	res, err := e.Calibrate(context.Background(), square400)
	if !errors.Is(err, ErrAborted) || !IsAbort(err) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if res.Phase != PhaseFailed || last.Phase != PhaseFailed || last.Err == "" {
		t.Errorf("expected failed phase, got %v / %+v", res.Phase, last)
	}
	if len(surface.shown) != 3 {
		t.Errorf("expected run to stop at target 2, shown %d", len(surface.shown))
	}
	if _, err := store.Load("0"); !errors.Is(err, homography.ErrNotFound) {
		t.Errorf("aborted run must not persist, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if errs := DefaultConfig().Validate(); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}
	bad := Config{Window: 0, Fractions: []float64{1.5}, MinPoints: 3}
	if errs := bad.Validate(); len(errs) != 3 {
		t.Errorf("expected 3 problems, got %v", errs)
	}
	if _, err := NewEngine(bad, nil, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
