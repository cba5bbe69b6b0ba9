package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/adapter/metrics"
	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/config"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const readHeaderTimeout = 10 * time.Second

type eventSubHandler interface {
	HandleEventSub(c echo.Context) error
}

type registrationService interface {
	RegisterAll(ctx context.Context) (int, error)
}

type broadcasterService interface {
	List(ctx context.Context) ([]domain.BroadcasterEntry, error)
	Get(ctx context.Context, broadcasterID string) (*domain.BroadcasterEntry, error)
	Save(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error)
	Delete(ctx context.Context, broadcasterID string) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	webhook      eventSubHandler
	registrar    registrationService
	broadcasters broadcasterService

	registry     *prometheus.Registry
	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer builds the HTTP surface. registry may be nil, in which case
// /metrics is not served and no request metrics are recorded.
func NewServer(cfg *config.Config, webhook eventSubHandler, registrar registrationService, broadcasters broadcasterService, registry *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = readHeaderTimeout

	srv := &Server{
		echo:         e,
		config:       cfg,
		webhook:      webhook,
		registrar:    registrar,
		broadcasters: broadcasters,
		registry:     registry,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port, "callback_url", s.config.CallbackURL())
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be mounted on an httptest.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) metricsMiddleware() echo.MiddlewareFunc {
	if s.registry == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return metrics.NewHTTPMetrics(s.registry).Middleware()
}
