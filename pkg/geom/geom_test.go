package geom

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if _, ok := Mean(nil); ok {
		t.Fatal("expected empty mean to report !ok")
	}

	got, ok := Mean([]Point{{0, 0}, {2, 4}, {4, 8}})
	if !ok {
		t.Fatal("expected ok")
	}
	if got != (Point{2, 4}) {
		t.Errorf("Mean: got %v, want (2,4)", got)
	}
}

func TestRect_Contains(t *testing.T) {
	r := Rect{Min: Pt(100, 50), W: 200, H: 100}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Pt(150, 75), true},
		{"top-left corner", Pt(100, 50), true},
		{"bottom-right corner", Pt(300, 150), true},
		{"left of rect", Pt(99.9, 75), false},
		{"below rect", Pt(150, 150.1), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Contains(tc.p); got != tc.want {
				t.Errorf("Contains(%v): got %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-5, 0, 10); got != 0 {
		t.Errorf("Clamp below: got %v", got)
	}
	if got := Clamp(15, 0, 10); got != 10 {
		t.Errorf("Clamp above: got %v", got)
	}
	if got := Clamp(math.NaN(), 0, 10); got != 0 {
		t.Errorf("Clamp NaN: got %v", got)
	}
}

func TestPoint_Finite(t *testing.T) {
	if !Pt(1, 2).Finite() {
		t.Error("expected finite point")
	}
	if Pt(math.Inf(1), 0).Finite() {
		t.Error("expected +Inf to be non-finite")
	}
	if Pt(0, math.NaN()).Finite() {
		t.Error("expected NaN to be non-finite")
	}
}
