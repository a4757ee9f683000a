package desktop

import (
	"fmt"
	"strconv"

	"github.com/go-vgo/robotgo"

	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
)

// Displays enumerates monitors through robotgo. Monitor ids are the display
// indexes as strings, which is also how calibration files are named.
type Displays struct{}

var _ screen.Enumerator = Displays{}

// Monitors returns every display the window system reports, in its order.
func (Displays) Monitors() ([]screen.Monitor, error) {
	n := robotgo.DisplaysNum()
	if n <= 0 {
		return nil, screen.ErrNoMonitors
	}
	out := make([]screen.Monitor, 0, n)
	for i := range n {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		m := screen.Monitor{
			ID:     strconv.Itoa(i),
			Index:  i,
			Origin: geom.Pt(float64(x), float64(y)),
			Width:  float64(w),
			Height: float64(h),
		}
		if err := m.Valid(); err != nil {
			return nil, fmt.Errorf("display %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}
