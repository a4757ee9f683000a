// gaze - Eye-gaze pointer control.
// Tracks the user's eyes through a webcam, moves the cursor to the mapped
// gaze point and turns blinks into clicks. The control API on -addr starts
// and stops tracking and runs calibration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/teslashibe/go-gaze/internal/bootstrap"
	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/display"
	"github.com/teslashibe/go-gaze/pkg/web"
)

type options struct {
	configPath string
	device     string
	logLevel   string
	addr       string
	noWeb      bool
	track      bool
	dryRun     bool
	noWindow   bool
	preview    bool
	steady     bool
}

// Windows must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ui := display.NewUI()
	var err error
	go func() {
		defer ui.Stop()
		err = run(ctx, opts, ui)
	}()
	ui.Run()

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to a YAML config file (default $GAZE_CONFIG)")
	flag.StringVar(&o.device, "device", "", "Camera selector: index, video path, image directory or dir:<path>")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&o.addr, "addr", "", "Control API listen address")
	flag.BoolVar(&o.noWeb, "no-web", false, "Disable the control API")
	flag.BoolVar(&o.track, "track", false, "Start tracking immediately")
	flag.BoolVar(&o.dryRun, "dry-run", false, "Log pointer actions instead of moving the cursor")
	flag.BoolVar(&o.noWindow, "no-window", false, "Disable the calibration window")
	flag.BoolVar(&o.preview, "preview", false, "Show tracked frames in a window (Esc stops tracking)")
	flag.BoolVar(&o.steady, "steady", false, "Smooth the pointer and ignore small movements")
	flag.Parse()
	return o
}

func run(ctx context.Context, opts options, ui *display.UI) error {
	cfg, err := config.Load(ctx, opts.configPath)
	if err != nil {
		return err
	}
	if opts.device != "" {
		cfg.Camera.Device = opts.device
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.addr != "" {
		cfg.Web.Addr = opts.addr
	}
	if opts.noWeb {
		cfg.Web.Enabled = false
	}
	if opts.steady {
		cfg.UseSteadyPointer()
	}
	log.Init(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger := log.Component("main")

	if !cfg.Web.Enabled && !opts.track {
		return errors.New("nothing to do: enable the control API or pass -track")
	}

	rt, err := bootstrap.Build(cfg, bootstrap.Options{
		DryRun:  opts.dryRun,
		Surface: !opts.noWindow,
		Preview: opts.preview,
		UI:      ui,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("👁️  gaze pointer control")
	fmt.Printf("   camera:  %s\n", cfg.Camera.Device)
	fmt.Printf("   storage: %s\n", cfg.DataDir)

	errCh := make(chan error, 1)
	if cfg.Web.Enabled {
		srv := web.NewServer(cfg.Web.Addr, rt.App, rt.Events, rt.Metrics.Handler())
		fmt.Printf("🌐 control API on %s\n", cfg.Web.Addr)
		go func() { errCh <- srv.Start(ctx) }()
	} else {
		go rt.Events.Run(ctx)
	}

	if opts.track {
		h, err := rt.App.StartTracking(ctx, "")
		if err != nil {
			return fmt.Errorf("start tracking: %w", err)
		}
		fmt.Printf("🎯 tracking session %s\n", h.ID)
		if !cfg.Web.Enabled {
			// Without the API nothing else can happen once the session ends.
			go func() { errCh <- rt.App.Wait(ctx, h.ID) }()
		}
	}

	select {
	case <-ctx.Done():
		fmt.Println("\n👋 shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("stopped with error", "error", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := rt.App.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return nil
}
