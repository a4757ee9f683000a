// Package camera provides the frame sources for gaze tracking and the
// per-frame preprocessing applied before detection.
package camera

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds all camera configuration parameters.
type Config struct {
	// Device selects the source: a webcam index ("0"), a video file or
	// stream URL, or "dir:<path>" to replay still images in name order.
	Device string `json:"device" koanf:"device"`

	// === Capture ===
	Width     int `json:"width" koanf:"width"`         // Requested capture width
	Height    int `json:"height" koanf:"height"`       // Requested capture height
	Framerate int `json:"framerate" koanf:"framerate"` // Requested FPS

	// === Preprocessing ===
	// Mirror flips frames horizontally so that looking right moves right.
	Mirror bool `json:"mirror" koanf:"mirror"`

	// ProcessWidth downsizes frames before detection. 0 keeps the capture size.
	ProcessWidth int `json:"process_width" koanf:"process_width"`

	// Loop restarts a directory replay when it reaches the end.
	Loop bool `json:"loop" koanf:"loop"`
}

// DefaultConfig returns the default webcam configuration.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Mirror:    true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if strings.TrimSpace(c.Device) == "" {
		errors = append(errors, "device must not be empty")
	}
	if c.Width < 0 || c.Width > 4096 {
		errors = append(errors, "width must be between 0 (driver default) and 4096")
	}
	if c.Height < 0 || c.Height > 4096 {
		errors = append(errors, "height must be between 0 (driver default) and 4096")
	}
	if c.Framerate < 0 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 0 (driver default) and 120")
	}
	if c.ProcessWidth < 0 {
		errors = append(errors, "process_width must not be negative")
	}

	return errors
}

// Kind classifies a device selector.
type Kind int

const (
	KindWebcam Kind = iota
	KindFile
	KindDir
)

// ParseDevice splits a device selector into its kind and target. A webcam
// target is returned as the decimal index.
func ParseDevice(device string) (Kind, string, error) {
	device = strings.TrimSpace(device)
	switch {
	case device == "":
		return 0, "", fmt.Errorf("%w: empty device", ErrInvalidConfig)
	case strings.HasPrefix(device, "dir:"):
		path := strings.TrimPrefix(device, "dir:")
		if path == "" {
			return 0, "", fmt.Errorf("%w: empty directory", ErrInvalidConfig)
		}
		return KindDir, path, nil
	}
	if n, err := strconv.Atoi(device); err == nil {
		if n < 0 {
			return 0, "", fmt.Errorf("%w: negative device index %d", ErrInvalidConfig, n)
		}
		return KindWebcam, strconv.Itoa(n), nil
	}
	return KindFile, device, nil
}
