// Package httpserver exposes the REST API and the websocket streams over
// Echo. Handlers translate transport concerns; all business rules live in
// presence, assignment and sentiment.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jaimehuang168/VoxParaguay2026/internal/broadcast"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/config"
)

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	registry   AgentRegistry
	engine     AssignmentEngine
	aggregator SentimentService
	hub        *broadcast.Hub
}

func NewServer(cfg *config.Config, registry AgentRegistry, engine AssignmentEngine, aggregator SentimentService, hub *broadcast.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("Request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:       e,
		config:     cfg,
		registry:   registry,
		engine:     engine,
		aggregator: aggregator,
		hub:        hub,
	}
	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
