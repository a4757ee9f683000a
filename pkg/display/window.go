// Package display renders calibration targets and the tracking preview in
// OpenCV windows driven from a single UI thread.
package display

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

var (
	targetColor = color.RGBA{R: 255, G: 60, B: 60, A: 0}
	dotColor    = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	textColor   = color.RGBA{R: 200, G: 200, B: 200, A: 0}
	gazeColor   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

const targetRadius = 24

// Window is a borderless full-screen window. It implements calibration.Surface.
// The OpenCV window is created on the first target and destroyed by Hide.
// Its methods may be called from any goroutine; the window itself is only
// touched on the UI thread.
type Window struct {
	ui   *UI
	name string
	win  *gocv.Window // UI thread only

	mu      sync.Mutex
	pending int
}

var (
	_ calibration.Surface = (*Window)(nil)
	_ calibration.Hider   = (*Window)(nil)
)

// NewWindow returns a window named name shown through ui. Nothing is shown
// until ShowTarget.
func NewWindow(ui *UI, name string) *Window {
	return &Window{ui: ui, name: name, pending: KeyNone}
}

func (w *Window) open() {
	if w.win != nil {
		return
	}
	w.win = gocv.NewWindow(w.name)
	w.win.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
}

// ShowTarget draws target, in desktop coordinates, on a blank canvas
// covering mon.
func (w *Window) ShowTarget(mon screen.Monitor, target geom.Point, index, total int) error {
	if err := mon.Valid(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), int(mon.Height), int(mon.Width), gocv.MatTypeCV8UC3)
	defer canvas.Close()

	local := mon.ToLocal(target)
	center := image.Pt(int(local.X+0.5), int(local.Y+0.5))
	gocv.Circle(&canvas, center, targetRadius, targetColor, -1)
	gocv.Circle(&canvas, center, 4, dotColor, -1)

	label := fmt.Sprintf("Look at the dot (%d/%d). Space to confirm, Esc to abort.", index+1, total)
	gocv.PutText(&canvas, label, image.Pt(40, int(mon.Height)-40), gocv.FontHersheySimplex, 0.8, textColor, 2)

	key := KeyNone
	err := w.ui.Do(func() {
		w.open()
		w.win.MoveWindow(int(mon.Origin.X), int(mon.Origin.Y))
		w.win.IMShow(canvas)
		key = w.win.WaitKey(1)
	})
	if err != nil {
		return err
	}
	w.store(key)
	return nil
}

// Poll returns the key pressed since the last call, pumping the window's
// event loop once. Once the UI loop has stopped it reports an abort.
func (w *Window) Poll() calibration.Signal {
	key := KeyNone
	err := w.ui.Do(func() {
		if w.win != nil {
			key = w.win.WaitKey(1)
		}
	})
	if err != nil {
		return calibration.SignalAbort
	}
	w.mu.Lock()
	if key == KeyNone {
		key = w.pending
	}
	w.pending = KeyNone
	w.mu.Unlock()
	return KeySignal(key)
}

func (w *Window) store(key int) {
	if key == KeyNone {
		return
	}
	w.mu.Lock()
	w.pending = key
	w.mu.Unlock()
}

// Hide destroys the window until the next target is shown.
func (w *Window) Hide() {
	_ = w.Close()
	w.mu.Lock()
	w.pending = KeyNone
	w.mu.Unlock()
}

// Close destroys the window.
func (w *Window) Close() error {
	var err error
	if derr := w.ui.Do(func() {
		if w.win != nil {
			err = w.win.Close()
			w.win = nil
		}
	}); derr != nil {
		return derr
	}
	return err
}
