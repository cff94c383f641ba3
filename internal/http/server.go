// Package http provides the HTTP API for forged.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/generation"
)

// Generator runs one generation request to completion. Implemented by the
// engine; narrowed to an interface so handlers are testable without one.
type Generator interface {
	Generate(ctx context.Context, req *generation.Request, onProgress generation.ProgressFunc) (*generation.Result, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the HTTP endpoints for forged.
type Server struct {
	echo      *echo.Echo
	generator Generator
	logger    *zap.Logger
	config    Config
}

// NewServer creates an HTTP server.
func NewServer(generator Generator, logger *zap.Logger, cfg Config) (*Server, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8750
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
	e.Use(metricsMiddleware)

	s := &Server{
		echo:      e,
		generator: generator,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/generations", s.handleGenerate)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body returned for failed runs.
type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleGenerate runs one generation. With Accept: text/event-stream the
// response is an SSE stream of progress events ending in a result or error
// event; otherwise the call blocks and returns the final result as JSON.
func (s *Server) handleGenerate(c echo.Context) error {
	var req generation.Request
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid generation request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream") {
		return s.generateStream(c, &req)
	}
	return s.generateAwait(c, &req)
}

func (s *Server) generateAwait(c echo.Context, req *generation.Request) error {
	result, err := s.generator.Generate(c.Request().Context(), req, nil)
	if err != nil {
		return c.JSON(statusForError(err), errorBody(err))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) generateStream(c echo.Context, req *generation.Request) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	// The engine emits progress synchronously from the run loop, so writing
	// from the callback stays on this request's goroutine.
	writeEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("failed to encode sse event", zap.Error(err))
			return
		}
		fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data)
		res.Flush()
	}

	result, err := s.generator.Generate(c.Request().Context(), req, func(ev generation.ProgressEvent) {
		writeEvent("progress", ev)
	})
	if err != nil {
		writeEvent("error", errorBody(err))
		return nil
	}
	writeEvent("result", result)
	return nil
}

func statusForError(err error) int {
	var stageErr *generation.StageError
	if errors.As(err, &stageErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorBody(err error) ErrorResponse {
	body := ErrorResponse{Error: err.Error()}
	var stageErr *generation.StageError
	if errors.As(err, &stageErr) {
		body.Stage = string(stageErr.Stage)
		body.RunID = stageErr.RunID
	}
	return body
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
