// Package web serves the control API, the live event stream and the
// Prometheus endpoint.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/calibration"
	"github.com/teslashibe/go-gaze/pkg/homography"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Backend is the application surface the API drives. *app.App implements it.
type Backend interface {
	Status() app.Status
	Monitors() ([]app.MonitorStatus, error)
	StartTracking(ctx context.Context, device string) (app.SessionHandle, error)
	StopTracking(ctx context.Context, id string) error
	SetSensitivity(params tracking.TuningParams) error
	Tuning() tracking.TuningParams
	RunCalibration(ctx context.Context, displayID string) ([]calibration.Result, error)
	StartCalibration(displayID string) (app.CalibrateFunc, error)
	Calibrations() ([]*homography.Record, error)
	Transform(displayID string) (*homography.Record, error)
	DeleteCalibration(displayID string) error
}

var _ Backend = (*app.App)(nil)

// Server is the HTTP control server
type Server struct {
	app     *fiber.App
	addr    string
	backend Backend
	events  *hub.Hub
	logger  *slog.Logger

	// Background calibrations started by the API
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server on addr. events is broadcast on /ws/events;
// metrics, when non-nil, is served on /metrics.
func NewServer(addr string, backend Backend, events *hub.Hub, metrics http.Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:    addr,
		backend: backend,
		events:  events,
		logger:  log.Component("web"),
		ctx:     ctx,
		cancel:  cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-gaze",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/monitors", s.handleMonitors)
	api.Post("/tracking", s.handleStartTracking)
	api.Delete("/tracking/:id", s.handleStopTracking)
	api.Get("/sensitivity", s.handleGetSensitivity)
	api.Put("/sensitivity", s.handleSetSensitivity)
	api.Get("/calibration", s.handleListCalibrations)
	api.Post("/calibration", s.handleCalibrate)
	api.Get("/calibration/:display", s.handleGetCalibration)
	api.Delete("/calibration/:display", s.handleDeleteCalibration)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the event hub and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.events.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("control API listening", "addr", s.addr)
	if err := s.app.Listen(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels background calibrations and stops the server.
func (s *Server) Shutdown() error {
	s.cancel()
	err := s.app.Shutdown()
	s.wg.Wait()
	return err
}
