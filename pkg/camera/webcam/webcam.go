// Package webcam reads frames from a camera or video file through gocv.
package webcam

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/camera"
)

// Capture wraps a gocv VideoCapture
type Capture struct {
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	device string
	file   bool
	mu     sync.Mutex
}

var _ camera.Source = (*Capture)(nil)

// Open opens the webcam index or video file named by cfg.Device and applies
// the requested capture size.
func Open(cfg camera.Config) (*Capture, error) {
	kind, target, err := camera.ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	if kind == camera.KindDir {
		return nil, fmt.Errorf("%w: %s is a directory replay, not a capture device", camera.ErrInvalidConfig, cfg.Device)
	}

	var vc *gocv.VideoCapture
	if kind == camera.KindWebcam {
		idx, _ := strconv.Atoi(target)
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		vc, err = gocv.VideoCaptureFile(target)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", camera.ErrCaptureUnavailable, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s did not open", camera.ErrCaptureUnavailable, cfg.Device)
	}

	if kind == camera.KindWebcam {
		if cfg.Width > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		}
		if cfg.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		}
		if cfg.Framerate > 0 {
			vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
		}
	}

	log.Info("camera opened",
		"device", cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight))

	return &Capture{cap: vc, frame: gocv.NewMat(), device: cfg.Device, file: kind == camera.KindFile}, nil
}

// NextFrame blocks until the next frame is read. A video file returns io.EOF
// at its end; a camera read failure is ErrCaptureUnavailable.
func (c *Capture) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.cap.Read(&c.frame); !ok || c.frame.Empty() {
		if c.file {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: read from %s failed", camera.ErrCaptureUnavailable, c.device)
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", camera.ErrCaptureUnavailable, err)
	}
	return img, nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	return c.cap.Close()
}

// OpenSource opens any device selector, including directory replays, and
// applies the configured preprocessing.
func OpenSource(cfg camera.Config) (camera.Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", camera.ErrInvalidConfig, errs)
	}
	kind, target, err := camera.ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	var src camera.Source
	if kind == camera.KindDir {
		src, err = camera.OpenDir(target, cfg.Loop)
	} else {
		src, err = Open(cfg)
	}
	if err != nil {
		return nil, err
	}
	return camera.WithPreprocess(src, cfg), nil
}
