// Package server exposes the topology engine over HTTP: the JSON API, the HTML
// viewer, live diagram updates over websocket, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nfrund/msgtopology/internal/aggregator"
	"github.com/nfrund/msgtopology/internal/app"
	"github.com/nfrund/msgtopology/internal/config"
	"github.com/nfrund/msgtopology/internal/hub"
	"github.com/nfrund/msgtopology/internal/middleware"
	"github.com/nfrund/msgtopology/internal/storage"
)

// CustomValidator adapts go-playground/validator to echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Server holds the HTTP layer of one topology process.
type Server struct {
	E   *echo.Echo
	cfg *config.Config
	app *app.App
	hub *hub.Hub

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the server, registers its routes and starts the diagram hub. The hub
// is refreshed whenever a topology snapshot changes.
func New(cfg *config.Config, a *app.App) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	setupErrorHandling(e)

	// per-server registry so several servers can coexist in one process
	reg := prometheus.NewRegistry()
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "msgtopology",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
		DoNotUseRequestPathFor404: true,
	}))

	s := &Server{
		E:      e,
		cfg:    cfg,
		app:    a,
		hub:    hub.NewHub(),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.hub.Run(ctx)

	if err := a.SubscribeChanges(ctx, s.onTopologyChanged); err != nil {
		slog.Warn("Live diagram updates disabled", "error", err)
	}

	s.RegisterRoutes(prometheus.Gatherers{prometheus.DefaultGatherer, reg})
	return s
}

// Close stops the hub and disconnects every websocket client.
func (s *Server) Close() {
	s.cancel()
}

// update is the message pushed to websocket clients.
type update struct {
	Diagram        string           `json:"diagram"`
	Stats          aggregator.Stats `json:"stats"`
	FailedServices []string         `json:"failedServices"`
}

func (s *Server) currentUpdate(ctx context.Context) update {
	v := s.app.AggregatedView(ctx, true)
	return update{Diagram: v.Diagram, Stats: v.Stats, FailedServices: v.FailedServices}
}

func (s *Server) onTopologyChanged(ctx context.Context, change storage.Change) error {
	slog.Debug("Topology changed", "service", change.Service, "op", change.Op)

	msg, err := json.Marshal(s.currentUpdate(ctx))
	if err != nil {
		return err
	}

	select {
	case s.hub.Broadcast <- msg:
	case <-s.ctx.Done():
	}
	return nil
}
