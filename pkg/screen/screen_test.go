package screen

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/homography"
)

type fakeTransforms map[string]homography.Matrix

func (f fakeTransforms) Get(id string) (homography.Matrix, error) {
	m, ok := f[id]
	if !ok {
		return homography.Matrix{}, homography.ErrNotFound
	}
	return m, nil
}

// Two side-by-side displays: 1920x1080 at the origin, 1280x1024 to its right.
func twoMonitors() []Monitor {
	return []Monitor{
		{ID: "0", Index: 0, Origin: geom.Pt(0, 0), Width: 1920, Height: 1080},
		{ID: "1", Index: 1, Origin: geom.Pt(1920, 0), Width: 1280, Height: 1024},
	}
}

func newMapper(t *testing.T, tf Transforms) *Mapper {
	t.Helper()
	m, err := NewMapper(tf, twoMonitors())
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	return m
}

func TestSelectActive(t *testing.T) {
	m := newMapper(t, fakeTransforms{})

	tests := []struct {
		name string
		p    geom.Point
		want string
	}{
		{"inside second", geom.Pt(2500, 500), "1"},
		{"outside all keeps second", geom.Pt(-50, -50), "1"},
		{"below second keeps second", geom.Pt(2500, 1050), "1"},
		{"inside first", geom.Pt(100, 100), "0"},
		{"outside all keeps first", geom.Pt(5000, 5000), "0"},
		{"shared edge goes to first", geom.Pt(1920, 500), "0"},
	}

	// Cases run in order; each depends on the active monitor left by the previous one.
	for _, tc := range tests {
		if got := m.SelectActive(tc.p); got.ID != tc.want {
			t.Errorf("%s: got monitor %s, want %s", tc.name, got.ID, tc.want)
		}
		if m.Active().ID != tc.want {
			t.Errorf("%s: active monitor not updated", tc.name)
		}
	}
}

func TestToLocal_AlwaysWithinBounds(t *testing.T) {
	mon := twoMonitors()[1]
	inputs := []geom.Point{
		geom.Pt(0, 0),
		geom.Pt(1920, 0),
		geom.Pt(3200, 1024),
		geom.Pt(1e9, -1e9),
		geom.Pt(-1e9, 1e9),
		geom.Pt(math.NaN(), math.Inf(1)),
		geom.Pt(2500.5, 512.25),
	}

	for _, p := range inputs {
		got := mon.ToLocal(p)
		if got.X < 0 || got.X > mon.Width || got.Y < 0 || got.Y > mon.Height {
			t.Errorf("ToLocal(%v) = %v escapes [0,%v]x[0,%v]", p, got, mon.Width, mon.Height)
		}
	}

	if got := mon.ToLocal(geom.Pt(2500.5, 512.25)); got != geom.Pt(580.5, 512.25) {
		t.Errorf("interior point: got %v", got)
	}
	if got := mon.ToDesktop(geom.Pt(580.5, 512.25)); got != geom.Pt(2500.5, 512.25) {
		t.Errorf("ToDesktop: got %v", got)
	}
}

func TestToScreen(t *testing.T) {
	m := newMapper(t, fakeTransforms{"0": {10, 0, 0, 0, 10, 0, 0, 0, 1}})

	got, err := m.ToScreen(geom.Pt(20, 30), "0")
	if err != nil || got != geom.Pt(200, 300) {
		t.Errorf("ToScreen: got %v, %v", got, err)
	}

	if _, err := m.ToScreen(geom.Pt(20, 30), "1"); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("expected ErrNotCalibrated, got %v", err)
	}
}

func TestToScreen_UnreadableTransform(t *testing.T) {
	store, err := homography.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path("0"), []byte("{\"matrix\": [1, 0"), 0644); err != nil {
		t.Fatal(err)
	}
	m := newMapper(t, homography.NewCache(store))

	if _, err := m.ToScreen(geom.Pt(20, 20), "0"); !errors.Is(err, ErrNotCalibrated) {
		t.Fatalf("corrupt transform: got %v, want ErrNotCalibrated", err)
	}

	// The failure is not remembered; a repaired file is picked up.
	if err := store.Save(&homography.Record{DisplayID: "0", Matrix: homography.Identity()}); err != nil {
		t.Fatal(err)
	}
	got, err := m.ToScreen(geom.Pt(20, 20), "0")
	if err != nil || got != geom.Pt(20, 20) {
		t.Errorf("after repair: got %v, %v", got, err)
	}
}

func TestMap_CrossesToNeighbour(t *testing.T) {
	// The transform calibrated on display 0 can land on display 1.
	shift := homography.Matrix{1, 0, 2000, 0, 1, 0, 0, 0, 1}
	m := newMapper(t, fakeTransforms{"0": shift})

	tgt, err := m.Map(geom.Pt(100, 100))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if tgt.Monitor.ID != "1" {
		t.Fatalf("expected display 1, got %s", tgt.Monitor.ID)
	}
	if tgt.Local != geom.Pt(180, 100) || tgt.Desktop != geom.Pt(2100, 100) {
		t.Errorf("unexpected target %+v", tgt)
	}

	// Display 1 has no transform of its own.
	if _, err := m.Map(geom.Pt(100, 100)); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("expected ErrNotCalibrated on display 1, got %v", err)
	}
}

func TestMap_ClampsDesktopTarget(t *testing.T) {
	m := newMapper(t, fakeTransforms{"0": homography.Identity()})
	tgt, err := m.Map(geom.Pt(-40, 500))
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Desktop != geom.Pt(0, 500) {
		t.Errorf("expected clamped desktop (0,500), got %v", tgt.Desktop)
	}
}

func TestStaticEnumerator(t *testing.T) {
	if _, err := (StaticEnumerator{}).Monitors(); !errors.Is(err, ErrNoMonitors) {
		t.Errorf("expected ErrNoMonitors, got %v", err)
	}

	ms, err := StaticEnumerator{{Width: 800, Height: 600}, {ID: "side", Width: 1024, Height: 768}}.Monitors()
	if err != nil {
		t.Fatalf("Monitors: %v", err)
	}
	if ms[0].ID != "0" || ms[1].Index != 1 || ms[1].ID != "side" {
		t.Errorf("unexpected monitors %+v", ms)
	}

	if _, err := (StaticEnumerator{{ID: "x"}}).Monitors(); err == nil {
		t.Error("expected error for empty extent")
	}
}
