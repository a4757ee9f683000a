package display

import (
	"errors"
	"runtime"
	"sync"
)

// ErrStopped is returned for window calls made after the UI loop ended.
var ErrStopped = errors.New("display: ui loop stopped")

// UI runs every OpenCV window call on one OS thread. HighGUI keeps per-thread
// state and on macOS only works from the main thread, so the process hands
// that thread to Run and everything else goes through Do.
type UI struct {
	calls chan func()
	quit  chan struct{}
	once  sync.Once
}

// NewUI returns a UI whose loop has not started yet.
func NewUI() *UI {
	return &UI{calls: make(chan func()), quit: make(chan struct{})}
}

// Run executes queued calls on the current OS thread until Stop.
func (u *UI) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case f := <-u.calls:
			f()
		case <-u.quit:
			return
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (u *UI) Stop() {
	u.once.Do(func() { close(u.quit) })
}

// Do runs f on the UI thread and waits for it to return.
func (u *UI) Do(f func()) error {
	done := make(chan struct{})
	select {
	case u.calls <- func() { defer close(done); f() }:
	case <-u.quit:
		return ErrStopped
	}
	<-done
	return nil
}
