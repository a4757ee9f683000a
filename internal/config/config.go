// Package config defines the process configuration and how it is loaded.
// Flags in cmd override the loaded values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// Config contains the process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json". Empty picks json when GO_ENV=production
	// and text otherwise.
	LogFormat string `koanf:"log_format"`

	// DataDir holds one calibration file per display.
	DataDir string `koanf:"data_dir"`

	Camera      camera.Config     `koanf:"camera"`
	Detection   DetectionConfig   `koanf:"detection"`
	Blink       BlinkConfig       `koanf:"blink"`
	Pointer     PointerConfig     `koanf:"pointer"`
	Calibration CalibrationConfig `koanf:"calibration"`

	// Monitors, when set, replaces window-system enumeration.
	Monitors []MonitorConfig `koanf:"monitors"`

	Web WebConfig `koanf:"web"`
}

// DetectionConfig selects the face and landmark models.
type DetectionConfig struct {
	FaceModel     string  `koanf:"face_model"`
	LandmarkModel string  `koanf:"landmark_model"`
	Confidence    float64 `koanf:"confidence"`
}

// BlinkConfig holds the blink classification thresholds.
type BlinkConfig struct {
	Threshold float64       `koanf:"threshold"`
	SingleMax time.Duration `koanf:"single_max"`
	LongMin   time.Duration `koanf:"long_min"`
	DragHold  time.Duration `koanf:"drag_hold"`
}

// PointerConfig shapes pointer motion.
type PointerConfig struct {
	Smoothing float64 `koanf:"smoothing"`
	DeadZone  float64 `koanf:"dead_zone"`
}

// CalibrationConfig holds the calibration procedure settings.
type CalibrationConfig struct {
	Window    time.Duration `koanf:"window"`
	Fractions []float64     `koanf:"fractions"`
	MinPoints int           `koanf:"min_points"`
	Fallback  bool          `koanf:"fallback"`
}

// MonitorConfig is one statically configured display.
type MonitorConfig struct {
	ID     string  `koanf:"id"`
	X      float64 `koanf:"x"`
	Y      float64 `koanf:"y"`
	Width  float64 `koanf:"width"`
	Height float64 `koanf:"height"`
}

// WebConfig controls the control API.
type WebConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	blinkDefaults := blink.DefaultSensitivity()
	calDefaults := calibration.DefaultConfig()
	detDefaults := detection.DefaultConfig()
	trackDefaults := tracking.DefaultConfig()

	return &Config{
		LogLevel:  "info",
		DataDir:   "calibration_data",
		Camera:    camera.DefaultConfig(),
		Detection: DetectionConfig{
			FaceModel:     detDefaults.ModelPath,
			LandmarkModel: detDefaults.LandmarkModelPath,
			Confidence:    detDefaults.ConfidenceThresh,
		},
		Blink: BlinkConfig{
			Threshold: blinkDefaults.Threshold,
			SingleMax: blinkDefaults.SingleMax,
			LongMin:   blinkDefaults.LongMin,
			DragHold:  blinkDefaults.DragHold,
		},
		Pointer: PointerConfig{
			Smoothing: trackDefaults.GazeSmoothing,
			DeadZone:  trackDefaults.MoveDeadZone,
		},
		Calibration: CalibrationConfig{
			Window:    calDefaults.Window,
			Fractions: calDefaults.Fractions,
			MinPoints: calDefaults.MinPoints,
			Fallback:  calDefaults.Fallback,
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8090",
		},
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log_format %q is not text or json", c.LogFormat))
	}
	if c.DataDir == "" {
		errs = append(errs, "data_dir must not be empty")
	}
	for _, e := range c.Camera.Validate() {
		errs = append(errs, "camera: "+e)
	}
	if c.Detection.Confidence <= 0 || c.Detection.Confidence > 1 {
		errs = append(errs, "detection: confidence must be in (0,1]")
	}
	if err := c.Sensitivity().Validate(); err != nil {
		errs = append(errs, "blink: "+err.Error())
	}
	if c.Pointer.Smoothing <= 0 || c.Pointer.Smoothing > 1 {
		errs = append(errs, "pointer: smoothing must be in (0,1]")
	}
	if c.Pointer.DeadZone < 0 {
		errs = append(errs, "pointer: dead_zone must not be negative")
	}
	for _, e := range c.CalibrationConfig().Validate() {
		errs = append(errs, "calibration: "+e)
	}
	if len(c.Monitors) > 0 {
		if _, err := c.StaticMonitors().Monitors(); err != nil {
			errs = append(errs, "monitors: "+err.Error())
		}
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		errs = append(errs, "web: addr must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// Sensitivity returns the blink section as classifier parameters.
func (c *Config) Sensitivity() blink.Sensitivity {
	return blink.Sensitivity{
		Threshold: c.Blink.Threshold,
		SingleMax: c.Blink.SingleMax,
		LongMin:   c.Blink.LongMin,
		DragHold:  c.Blink.DragHold,
	}
}

// CalibrationConfig returns the calibration section as engine parameters.
func (c *Config) CalibrationConfig() calibration.Config {
	return calibration.Config{
		Window:    c.Calibration.Window,
		Fractions: c.Calibration.Fractions,
		MinPoints: c.Calibration.MinPoints,
		Fallback:  c.Calibration.Fallback,
	}
}

// DetectionConfig returns the detector parameters with the configured models.
func (c *Config) DetectionConfig() detection.Config {
	d := detection.DefaultConfig()
	d.ModelPath = c.Detection.FaceModel
	d.LandmarkModelPath = c.Detection.LandmarkModel
	d.ConfidenceThresh = c.Detection.Confidence
	return d
}

// UseSteadyPointer switches the pointer section to the steadier preset of
// tracking.SmoothConfig.
func (c *Config) UseSteadyPointer() {
	s := tracking.SmoothConfig()
	c.Pointer.Smoothing = s.GazeSmoothing
	c.Pointer.DeadZone = s.MoveDeadZone
}

// StaticMonitors returns the configured monitors, or nil when the window
// system should be asked instead.
func (c *Config) StaticMonitors() screen.StaticEnumerator {
	if len(c.Monitors) == 0 {
		return nil
	}
	out := make(screen.StaticEnumerator, len(c.Monitors))
	for i, m := range c.Monitors {
		out[i] = screen.Monitor{ID: m.ID, Origin: geom.Pt(m.X, m.Y), Width: m.Width, Height: m.Height}
	}
	return out
}

// App returns the application settings.
func (c *Config) App() app.Config {
	t := tracking.DefaultConfig()
	t.Sensitivity = c.Sensitivity()
	t.GazeSmoothing = c.Pointer.Smoothing
	t.MoveDeadZone = c.Pointer.DeadZone
	return app.Config{
		Device:      c.Camera.Device,
		Tracking:    t,
		Calibration: c.CalibrationConfig(),
	}
}
