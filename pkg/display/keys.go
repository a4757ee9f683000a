package display

import "github.com/teslashibe/go-gaze/pkg/calibration"

// Key codes returned by WaitKey
const (
	KeyNone   = -1
	KeyEnter  = 13
	KeyEscape = 27
	KeySpace  = 32
)

// KeySignal maps a key code to a calibration input. Space and Enter confirm
// the current target, Escape and q abort the run.
func KeySignal(key int) calibration.Signal {
	switch key & 0xff {
	case KeySpace, KeyEnter, '\n':
		return calibration.SignalConfirm
	case KeyEscape, 'q', 'Q':
		return calibration.SignalAbort
	}
	return calibration.SignalNone
}
