// gazectl - Command line client for a running gaze server.
//
// Usage:
//
//	gazectl [-addr host:port] status
//	gazectl monitors
//	gazectl track start [device]
//	gazectl track stop <session-id>
//	gazectl sensitivity [key=value ...]
//	gazectl calibrate [-wait] [display]
//	gazectl calibrations
//	gazectl transform <display>
//	gazectl forget <display>
//	gazectl events [type ...]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-gaze/internal/httpc"
	"github.com/teslashibe/go-gaze/pkg/tracking"
	"github.com/teslashibe/go-gaze/pkg/web"
)

var errUsage = errors.New("usage: gazectl [-addr host:port] <status|monitors|track|sensitivity|calibrate|calibrations|transform|forget|events> [args]")

func main() {
	addr := flag.String("addr", "localhost:8090", "Server address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *addr, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	c := web.NewClient(addr)
	cmd, args := args[0], args[1:]

	switch cmd {
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(st)

	case "monitors":
		monitors, err := c.Monitors(ctx)
		if err != nil {
			return err
		}
		for _, m := range monitors {
			mark := "⚪"
			if m.Calibrated {
				mark = "🟢"
			}
			fmt.Printf("%s %-4s %4.0fx%-4.0f at %v  rms=%.1f\n", mark, m.ID, m.Width, m.Height, m.Origin, m.RMS)
		}
		return nil

	case "track":
		return track(ctx, c, args)

	case "sensitivity":
		if len(args) == 0 {
			p, err := c.Sensitivity(ctx)
			if err != nil {
				return err
			}
			return printJSON(p)
		}
		p, err := parseTuning(args)
		if err != nil {
			return err
		}
		out, err := c.SetSensitivity(ctx, p)
		if err != nil {
			return err
		}
		return printJSON(out)

	case "calibrate":
		fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
		wait := fs.Bool("wait", false, "Block until calibration ends")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *wait {
			c.WithHTTPClient(httpc.NewClient(0))
		}
		results, err := c.Calibrate(ctx, fs.Arg(0), *wait)
		if len(results) > 0 {
			if perr := printJSON(results); perr != nil {
				return perr
			}
		} else if err == nil {
			fmt.Println("🎯 calibration started, follow it with: gazectl events calibration")
		}
		return err

	case "calibrations":
		recs, err := c.Calibrations(ctx)
		if err != nil {
			return err
		}
		for _, r := range recs {
			fmt.Printf("🟢 %-4s rms=%.1f  %s\n", r.DisplayID, r.RMS, r.CreatedAt.Format(time.RFC3339))
		}
		return nil

	case "transform":
		if len(args) != 1 {
			return errUsage
		}
		rec, err := c.Transform(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)

	case "forget":
		if len(args) != 1 {
			return errUsage
		}
		if err := c.DeleteCalibration(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑️  calibration of display %s removed\n", args[0])
		return nil

	case "events":
		return tail(ctx, addr, args)
	}
	return errUsage
}

func track(ctx context.Context, c *web.Client, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "start":
		device := ""
		if len(args) > 1 {
			device = args[1]
		}
		h, err := c.StartTracking(ctx, device)
		if err != nil {
			return err
		}
		fmt.Printf("🎯 tracking session %s on %q\n", h.ID, h.Device)
		return nil
	case "stop":
		if len(args) != 2 {
			return errUsage
		}
		if err := c.StopTracking(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("⏹️  session %s stopped\n", args[1])
		return nil
	}
	return errUsage
}

// parseTuning reads key=value pairs named after the JSON fields of
// tracking.TuningParams.
func parseTuning(args []string) (tracking.TuningParams, error) {
	var p tracking.TuningParams
	fields := map[string]*float64{
		"blink_threshold":     &p.BlinkThreshold,
		"blink_duration":      &p.BlinkDuration,
		"long_blink_duration": &p.LongBlinkDuration,
		"drag_hold":           &p.DragHold,
		"gaze_smoothing":      &p.GazeSmoothing,
		"move_dead_zone":      &p.MoveDeadZone,
	}
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		dst, known := fields[key]
		if !ok || !known {
			return p, fmt.Errorf("bad setting %q", arg)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return p, fmt.Errorf("bad value for %s: %w", key, err)
		}
		*dst = v
	}
	return p, nil
}

func tail(ctx context.Context, addr string, types []string) error {
	stream, err := web.Dial(ctx, addr, types...)
	if err != nil {
		return err
	}
	defer stream.Close()
	fmt.Fprintf(os.Stderr, "📡 connected to %s\n", addr)

	return stream.Tail(ctx, func(ev web.StreamEvent) {
		fmt.Println(string(ev.Raw))
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
