// calibrate - One-shot gaze calibration.
// Shows a fullscreen target grid on each display (or the one given with
// -display), samples the gaze at each target and stores the fitted
// transform. Space or Enter confirms a target, Esc or q aborts.
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

	"github.com/teslashibe/go-gaze/internal/bootstrap"
	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/display"
)

// Windows must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

var errAborted = errors.New("calibration aborted")

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default $GAZE_CONFIG)")
	device := flag.String("device", "", "Camera selector (overrides config)")
	displayID := flag.String("display", "", "Calibrate only this display")
	window := flag.Duration("window", 0, "Sampling window per target (overrides config)")
	fallback := flag.Bool("fallback", true, "Use the target itself when a target yields no samples")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		fatal(err)
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *window > 0 {
		cfg.Calibration.Window = *window
	}
	cfg.Calibration.Fallback = *fallback
	log.Init(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ui := display.NewUI()
	go func() {
		defer ui.Stop()
		err = run(ctx, cfg, ui, *displayID)
	}()
	ui.Run()

	switch {
	case errors.Is(err, errAborted):
		fmt.Println("⏹️  Calibration aborted, previous transforms kept")
		os.Exit(2)
	case err != nil:
		fatal(err)
	}
	fmt.Println("✅ Calibration complete")
}

func run(ctx context.Context, cfg *config.Config, ui *display.UI, displayID string) error {
	rt, err := bootstrap.Build(cfg, bootstrap.Options{DryRun: true, Surface: true, UI: ui})
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println("🎯 Gaze calibration")
	fmt.Println("   Look at each target, then press Space. Esc aborts.")

	results, err := rt.App.RunCalibration(ctx, displayID)
	for _, res := range results {
		printResult(res)
	}
	if calibration.IsAbort(err) {
		return errAborted
	}
	return err
}

func printResult(res calibration.Result) {
	if !res.OK() {
		fmt.Printf("❌ display %s: %s\n", res.DisplayID, res.Error)
		return
	}
	fmt.Printf("✅ display %s: %d points, %d fallback, RMS %.1f px\n",
		res.DisplayID, len(res.Points), res.Fallbacks, res.RMS)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	os.Exit(1)
}
