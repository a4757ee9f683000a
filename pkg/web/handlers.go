package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/screen"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, app.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, app.ErrUnknownSession),
		errors.Is(err, homography.ErrNotFound),
		errors.Is(err, screen.ErrUnknownMonitor):
		return fiber.StatusNotFound
	case errors.Is(err, blink.ErrInvalidSensitivity):
		return fiber.StatusBadRequest
	case errors.Is(err, app.ErrNoSurface),
		errors.Is(err, camera.ErrCaptureUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, calibration.ErrAborted):
		return fiber.StatusRequestTimeout
	case errors.Is(err, calibration.ErrInsufficientSamples),
		errors.Is(err, homography.ErrDegenerate):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// handleStatus returns the application mode and live sessions
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.backend.Status())
}

// handleMonitors lists the displays and their calibration state
func (s *Server) handleMonitors(c *fiber.Ctx) error {
	monitors, err := s.backend.Monitors()
	if err != nil {
		return err
	}
	return c.JSON(monitors)
}

// StartTrackingRequest is the request body for starting a session
type StartTrackingRequest struct {
	Device string `json:"device"`
}

// handleStartTracking starts a tracking session
func (s *Server) handleStartTracking(c *fiber.Ctx) error {
	var req StartTrackingRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	handle, err := s.backend.StartTracking(c.UserContext(), req.Device)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(handle)
}

// handleStopTracking stops a session and waits for it to exit
func (s *Server) handleStopTracking(c *fiber.Ctx) error {
	if err := s.backend.StopTracking(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGetSensitivity returns the current tuning
func (s *Server) handleGetSensitivity(c *fiber.Ctx) error {
	return c.JSON(s.backend.Tuning())
}

// handleSetSensitivity applies the non-zero fields of the body
func (s *Server) handleSetSensitivity(c *fiber.Ctx) error {
	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.backend.SetSensitivity(params); err != nil {
		return err
	}
	return c.JSON(s.backend.Tuning())
}

// CalibrateRequest is the request body for a calibration run. An empty
// display calibrates every display.
type CalibrateRequest struct {
	Display string `json:"display"`
	Wait    bool   `json:"wait"`
}

// handleCalibrate starts a calibration. Progress is published on
// /ws/events; with wait set the request blocks and returns the results.
func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	var req CalibrateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	if req.Wait {
		results, err := s.backend.RunCalibration(c.UserContext(), req.Display)
		if err != nil && len(results) == 0 {
			return err
		}
		resp := fiber.Map{"results": results}
		code := fiber.StatusOK
		if err != nil {
			resp["error"] = err.Error()
			code = statusFor(err)
		}
		return c.Status(code).JSON(resp)
	}

	run, err := s.backend.StartCalibration(req.Display)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := run(s.ctx); err != nil {
			s.logger.Warn("calibration failed", "display", req.Display, "error", err)
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started", "display": req.Display})
}

// handleListCalibrations returns every persisted transform
func (s *Server) handleListCalibrations(c *fiber.Ctx) error {
	recs, err := s.backend.Calibrations()
	if err != nil {
		return err
	}
	return c.JSON(recs)
}

// handleGetCalibration returns the persisted transform of a display
func (s *Server) handleGetCalibration(c *fiber.Ctx) error {
	rec, err := s.backend.Transform(c.Params("display"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// handleDeleteCalibration removes the persisted transform of a display
func (s *Server) handleDeleteCalibration(c *fiber.Ctx) error {
	if err := s.backend.DeleteCalibration(c.Params("display")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleEventsWS streams tracking and calibration events. The optional
// types query (comma separated) restricts the stream to those event types.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	var topics []string
	if q := c.Query("types"); q != "" {
		topics = strings.Split(q, ",")
	}
	hub.NewClient(s.events, c, topics...).Run()
}
