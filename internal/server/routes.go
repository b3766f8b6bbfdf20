package server

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nfrund/msgtopology/internal/aggregator"
	"github.com/nfrund/msgtopology/internal/middleware"
)

const (
	// ViewerPath serves the HTML topology viewer.
	ViewerPath = "/q/messaging-topology-viewer"

	// sendRate is the number of send requests allowed per client IP and second.
	sendRate = 5
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes(gatherer prometheus.Gatherer) {
	api := s.E.Group(aggregator.DefaultPath)
	api.GET("", s.getTopology)
	api.GET("/services", s.getServices)
	api.GET("/stored", s.getStored)
	api.GET("/schema", s.getSchema)
	api.GET("/example", s.getExample)
	api.POST("/send", s.postSend, middleware.RateLimiter(sendRate))
	api.GET("/view", s.getView)
	api.GET("/diagram", s.getDiagram)
	api.GET("/ws", s.serveWS)

	viewer := s.E.Group(ViewerPath)
	viewer.GET("", s.getViewer)
	viewer.GET("/diagram", s.getViewerDiagram)

	s.E.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
