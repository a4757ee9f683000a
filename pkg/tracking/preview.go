package tracking

import (
	"fmt"
	"image"
	"strings"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
)

// Overlay is what a preview draws over a processed frame. Points are in
// image pixels.
type Overlay struct {
	Left  *eye.Region
	Right *eye.Region
	Gaze  *geom.Point
	Text  string
}

// Preview shows processed frames. It is called from a goroutine of its own;
// frames that arrive while it is busy are dropped in favour of the newest.
// Returning stop ends the session after the frame in flight.
type Preview interface {
	ShowFrame(img image.Image, ov Overlay) (stop bool, err error)
}

// Overlay returns the preview annotations for the frame.
func (r FrameResult) Overlay() Overlay {
	ov := Overlay{Left: r.Left, Right: r.Right}
	if r.GazeOK {
		g := r.Gaze
		ov.Gaze = &g
	}

	var parts []string
	switch {
	case r.Skip != "":
		parts = append(parts, r.Skip)
	case r.RatioOK:
		parts = append(parts, fmt.Sprintf("EAR %.2f", r.Ratio))
	}
	if r.Target != nil {
		parts = append(parts, "monitor "+r.Target.Monitor.ID)
	}
	if r.Blink != nil {
		parts = append(parts, r.Blink.Kind.String()+" blink")
	}
	ov.Text = strings.Join(parts, "  ")
	return ov
}
