// Package server wires the HTTP surface: routing, auth, logging, rate
// limiting and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/yhzhou/smartcal/internal/profile"
	"github.com/yhzhou/smartcal/server/middleware"
	"github.com/yhzhou/smartcal/server/router/apiv1"
	"github.com/yhzhou/smartcal/server/service/assistant"
	"github.com/yhzhou/smartcal/store"
)

// Server is the HTTP server of the scheduling assistant.
type Server struct {
	e       *echo.Echo
	profile *profile.Profile
	store   *store.Store
}

// NewServer creates the server with all routes mounted.
func NewServer(profile *profile.Profile, store *store.Store, engine *assistant.Assistant) (*Server, error) {
	if profile.Secret == "" {
		return nil, errors.New("secret must not be empty")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.NewRateLimiter(time.Second/10, 20).Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiV1Service := apiv1.NewAPIV1Service(profile.Secret, profile, store, engine)
	apiV1Service.Register(e)

	return &Server{
		e:       e,
		profile: profile,
		store:   store,
	}, nil
}

// Start begins serving and blocks until the listener fails or the server is
// shut down.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "address", address, "mode", s.profile.Mode, "version", s.profile.Version)

	if err := s.e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}

// requestLogger logs one line per request with a generated request id.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.NewString()
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			slog.Info("http request",
				"request_id", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start).String(),
			)
			return err
		}
	}
}
