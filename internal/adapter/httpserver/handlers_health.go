package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/platform/version"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 5 * time.Second

// HealthCheck is a dependency the relay needs before it can serve callbacks.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime"`
	DirectoryBackend string  `json:"directory_backend"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return writeJSON(c, http.StatusOK, livenessResponse{
		Status:           "ok",
		UptimeSeconds:    time.Since(s.startTime).Seconds(),
		DirectoryBackend: s.config.DirectoryBackend,
	})
}

// handleReadiness probes every dependency in parallel and reports each one,
// so an operator sees all broken dependencies at once.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(s.healthChecks))
		healthy = true
	)
	var g errgroup.Group
	for _, hc := range s.healthChecks {
		g.Go(func() error {
			result := "ok"
			if err := hc.Check(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[hc.Name] = result
			healthy = healthy && result == "ok"
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		return writeJSON(c, http.StatusServiceUnavailable, readinessResponse{Status: "unavailable", Checks: results})
	}
	return writeJSON(c, http.StatusOK, readinessResponse{Status: "ready", Checks: results})
}

func (s *Server) handleVersion(c echo.Context) error {
	return writeJSON(c, http.StatusOK, version.Get())
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write %s response: %w", c.Path(), err)
	}
	return nil
}
