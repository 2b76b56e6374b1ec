// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the review session and the catalog over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dbvis-ukon/LLMSurver/internal/metrics"
	"github.com/dbvis-ukon/LLMSurver/internal/orchestrate"
	"github.com/dbvis-ukon/LLMSurver/internal/review"
	"github.com/dbvis-ukon/LLMSurver/internal/store"
	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// Catalog is the paper, model and run listing the API serves directly.
// *store.Store implements it.
type Catalog interface {
	InsertPapers(ctx context.Context, papers []types.Paper) ([]int64, error)
	ListPapers(ctx context.Context) ([]types.Paper, error)
	SaveModel(ctx context.Context, m types.Model, edit bool) (types.Model, error)
	ListModels(ctx context.Context) ([]types.Model, error)
	Parameters(ctx context.Context, modelID int64) ([]types.Parameter, error)
	ListRuns(ctx context.Context) ([]types.Run, error)
}

// Server is the echo application.
type Server struct {
	echo    *echo.Echo
	catalog Catalog
	session *review.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds the application and mounts every route.
func New(catalog Catalog, session *review.Service, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, catalog: catalog, session: session, metrics: m, logger: logger}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(s.logRequests)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	s.register(e.Group("/api"))
	return s
}

// Handler returns the root handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return nil
	}
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) (int, string) {
	var verr *orchestrate.ValidationError
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, orchestrate.ErrRunActive):
		return http.StatusConflict, err.Error()
	case errors.As(err, &herr):
		if msg, ok := herr.Message.(string); ok {
			return herr.Code, msg
		}
		return herr.Code, http.StatusText(herr.Code)
	}
	return http.StatusInternalServerError, err.Error()
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Error: msg})
	}
	if err != nil {
		s.logger.Warn("writing error response failed", "error", err)
	}
}
