package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

var eyeColor = color.RGBA{R: 0, G: 200, B: 255, A: 0}

// Preview is a normal window showing the camera frames being tracked with
// the eye contours, the gaze point and a status line drawn on top.
// It implements tracking.Preview. Frames are drawn on the caller's goroutine
// and handed to the UI thread for display.
type Preview struct {
	ui   *UI
	name string
	win  *gocv.Window // UI thread only
}

var _ tracking.Preview = (*Preview)(nil)

// NewPreview returns a preview window named name shown through ui. The
// window opens with the first frame.
func NewPreview(ui *UI, name string) *Preview {
	return &Preview{ui: ui, name: name}
}

// ShowFrame draws img with ov and reports stop when Esc or q was pressed.
func (p *Preview) ShowFrame(img image.Image, ov tracking.Overlay) (bool, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, fmt.Errorf("display: convert frame: %w", err)
	}
	defer mat.Close()

	for _, r := range []*eye.Region{ov.Left, ov.Right} {
		if r != nil {
			drawContour(&mat, r)
		}
	}
	if ov.Gaze != nil {
		gocv.Circle(&mat, image.Pt(int(ov.Gaze.X), int(ov.Gaze.Y)), 5, gazeColor, -1)
	}
	if ov.Text != "" {
		gocv.PutText(&mat, ov.Text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, gazeColor, 2)
	}

	key := KeyNone
	err = p.ui.Do(func() {
		if p.win == nil {
			p.win = gocv.NewWindow(p.name)
		}
		p.win.IMShow(mat)
		key = p.win.WaitKey(1)
	})
	if err != nil {
		return true, err
	}
	return KeySignal(key) == calibration.SignalAbort, nil
}

func drawContour(mat *gocv.Mat, r *eye.Region) {
	pts := make([]image.Point, 0, eye.RegionSize)
	for _, q := range r.Points() {
		pts = append(pts, image.Pt(int(q.X), int(q.Y)))
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.Polylines(mat, pv, true, eyeColor, 1)
}

// Close destroys the window.
func (p *Preview) Close() error {
	var err error
	if derr := p.ui.Do(func() {
		if p.win != nil {
			err = p.win.Close()
			p.win = nil
		}
	}); derr != nil {
		return derr
	}
	return err
}
