// Package bootstrap assembles the hardware-backed application from a loaded
// configuration. It is the only place the OpenCV, webcam and desktop
// implementations meet.
package bootstrap

import (
	"errors"
	"fmt"
	"io"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/actuator"
	"github.com/teslashibe/go-gaze/pkg/actuator/desktop"
	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/camera/webcam"
	"github.com/teslashibe/go-gaze/pkg/display"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection/opencv"
)

// Window titles
const (
	WindowName  = "gaze calibration"
	PreviewName = "gaze preview"
)

// Options selects which optional parts are built.
type Options struct {
	// DryRun records pointer actions instead of moving the real cursor.
	DryRun bool

	// Surface opens the fullscreen calibration window.
	Surface bool

	// Preview opens a window showing the tracked frames.
	Preview bool

	// UI runs the window calls. Required for Surface and Preview.
	UI *display.UI
}

// Runtime is an assembled application and the resources it owns.
type Runtime struct {
	App     *app.App
	Metrics *metrics.Manager
	Events  *hub.Hub
	Window  *display.Window
	Preview *display.Preview

	closers []io.Closer
}

// Build wires every dependency named by cfg.
func Build(cfg *config.Config, opts Options) (*Runtime, error) {
	logger := log.Component("bootstrap")
	if (opts.Surface || opts.Preview) && opts.UI == nil {
		return nil, errors.New("bootstrap: windows need a UI loop")
	}

	store, err := homography.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("calibration store: %w", err)
	}

	var monitors screen.Enumerator = desktop.Displays{}
	if static := cfg.StaticMonitors(); static != nil {
		monitors = static
		logger.Info("using configured monitors", "count", len(static))
	}

	rt := &Runtime{
		Metrics: metrics.NewManager(),
		Events:  hub.New("events"),
	}
	rt.Metrics.ObserveDroppedEvents(rt.Events.Dropped)

	dcfg := cfg.DetectionConfig()
	faces, err := opencv.NewYuNet(dcfg)
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}
	marks, err := opencv.NewLandmarkNet(dcfg)
	if err != nil {
		faces.Close()
		return nil, fmt.Errorf("landmark model: %w", err)
	}
	provider := detection.Provider{Detector: faces, Landmarker: marks}
	rt.closers = append(rt.closers, provider)

	var pointer actuator.Pointer = desktop.NewPointer()
	if opts.DryRun {
		pointer = actuator.NewMock()
		logger.Info("dry run: pointer actions are recorded only")
	}

	deps := app.Deps{
		Monitors:   monitors,
		Transforms: store,
		Open:       opener(cfg.Camera),
		Provider:   provider,
		Pointer:    pointer,
		Metrics:    rt.Metrics,
		Events:     rt.Events.Publish,
	}
	if opts.Surface {
		rt.Window = display.NewWindow(opts.UI, WindowName)
		rt.closers = append(rt.closers, rt.Window)
		deps.Surface = rt.Window
	}
	if opts.Preview {
		rt.Preview = display.NewPreview(opts.UI, PreviewName)
		rt.closers = append(rt.closers, rt.Preview)
		deps.Preview = rt.Preview
	}

	rt.App, err = app.New(cfg.App(), deps)
	if err != nil {
		rt.Close()
		return nil, err
	}

	logger.Info("application ready",
		"data_dir", store.Dir(),
		"device", cfg.Camera.Device,
		"surface", opts.Surface,
		"preview", opts.Preview,
		"dry_run", opts.DryRun)
	return rt, nil
}

// opener returns a camera.Opener that overrides the configured device when
// a selector is given.
func opener(base camera.Config) camera.Opener {
	return func(device string) (camera.Source, error) {
		c := base
		if device != "" {
			c.Device = device
		}
		return webcam.OpenSource(c)
	}
}

// Close releases the models and the window.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}
