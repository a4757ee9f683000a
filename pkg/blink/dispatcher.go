package blink

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/pkg/actuator"
)

// Buttons is the subset of the pointer actuator a dispatcher needs.
type Buttons interface {
	actuator.Clicker
	actuator.Presser
}

// Dispatcher turns blink events into pointer actions:
//
//	Single -> primary click
//	Double -> secondary click
//	Long   -> primary press, hold, release
type Dispatcher struct {
	buttons Buttons

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher that acts through buttons.
func NewDispatcher(buttons Buttons) *Dispatcher {
	return &Dispatcher{buttons: buttons, sleep: sleepCtx}
}

// Dispatch performs the action for ev. A long blink holds for ev.Hold and
// always releases the button, even when ctx is cancelled during the hold.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case Single:
		return d.buttons.Click(actuator.Left)
	case Double:
		return d.buttons.Click(actuator.Right)
	case Long:
		if err := d.buttons.Press(actuator.Left); err != nil {
			return err
		}
		holdErr := d.sleep(ctx, ev.Hold)
		if err := d.buttons.Release(actuator.Left); err != nil {
			return err
		}
		return holdErr
	default:
		return fmt.Errorf("blink: unknown event kind %d", ev.Kind)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
