// Package http provides the optional debug HTTP endpoint for triadd.
//
// The MCP protocol owns stdio, so health checks, Prometheus metrics, and
// read-only task inspection are served over a localhost HTTP listener.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/orchestrator"
	"github.com/fyrsmithlabs/triadd/internal/session"
)

// Server provides debug HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	svc      *orchestrator.Service
	sessions *session.Registry
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new debug HTTP server.
func NewServer(svc *orchestrator.Service, sessions *session.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("orchestrator service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9290,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		svc:      svc,
		sessions: sessions,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/tasks", s.handleListTasks)
	v1.GET("/tasks/:id", s.handleTaskStatus)
	v1.GET("/agents", s.handleAgents)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AgentsResponse is the response body for GET /api/v1/agents.
type AgentsResponse struct {
	WriterID    string `json:"writer_id,omitempty"`
	ValidatorID string `json:"validator_id,omitempty"`
	Ready       bool   `json:"ready"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleListTasks(c echo.Context) error {
	results, err := s.svc.ListTasks(c.Request().Context())
	if err != nil {
		s.logger.Warn("list tasks failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list tasks failed")
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleTaskStatus(c echo.Context) error {
	result, err := s.svc.TaskStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		if orchestrator.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		s.logger.Warn("task status failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "task status failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleAgents(c echo.Context) error {
	if s.sessions == nil {
		return c.JSON(http.StatusOK, AgentsResponse{})
	}
	snap := s.sessions.State()
	return c.JSON(http.StatusOK, AgentsResponse{
		WriterID:    snap.WriterID,
		ValidatorID: snap.ValidatorID,
		Ready:       snap.WriterID != "" && snap.ValidatorID != "",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting debug http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down debug http server")
	return s.echo.Shutdown(ctx)
}
