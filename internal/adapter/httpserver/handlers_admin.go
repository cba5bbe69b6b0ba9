package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/app"
	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type broadcasterRequest struct {
	DisplayName          string `json:"display_name"`
	WebhookURL           string `json:"webhook_url"`
	RequiredTitleKeyword string `json:"required_title_keyword"`
	Username             string `json:"username"`
	AvatarURL            string `json:"avatar_url"`
}

type broadcasterResponse struct {
	BroadcasterID        string     `json:"broadcaster_id"`
	DisplayName          string     `json:"display_name,omitempty"`
	WebhookURL           string     `json:"webhook_url"`
	RequiredTitleKeyword string     `json:"required_title_keyword,omitempty"`
	Username             string     `json:"username,omitempty"`
	AvatarURL            string     `json:"avatar_url,omitempty"`
	CreatedAt            *time.Time `json:"created_at,omitempty"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

func toBroadcasterResponse(e domain.BroadcasterEntry) broadcasterResponse {
	resp := broadcasterResponse{
		BroadcasterID:        e.BroadcasterID,
		DisplayName:          e.DisplayName,
		WebhookURL:           e.WebhookURL,
		RequiredTitleKeyword: e.RequiredTitleKeyword,
		Username:             e.Username,
		AvatarURL:            e.AvatarURL,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = &e.CreatedAt
	}
	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = &e.UpdatedAt
	}
	return resp
}

func (s *Server) registerAdminRoutes() {
	admin := s.echo.Group("/api",
		newRateLimiter(s.config.AdminRateLimit, s.config.AdminRateBurst),
		requireSecret(s.config.RequestSecret),
	)

	admin.POST("/registerBroadcasters", s.handleRegisterBroadcasters)
	admin.GET("/broadcasters", s.handleListBroadcasters)
	admin.GET("/broadcasters/:id", s.handleGetBroadcaster)
	admin.PUT("/broadcasters/:id", s.handleSaveBroadcaster)
	admin.DELETE("/broadcasters/:id", s.handleDeleteBroadcaster)
}

func (s *Server) handleRegisterBroadcasters(c echo.Context) error {
	n, err := s.registrar.RegisterAll(c.Request().Context())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]string{"message": app.RegisteredMessage(n)}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListBroadcasters(c echo.Context) error {
	entries, err := s.broadcasters.List(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]broadcasterResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toBroadcasterResponse(e))
	}
	if err := c.JSON(http.StatusOK, map[string]any{"broadcasters": out}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetBroadcaster(c echo.Context) error {
	entry, err := s.broadcasters.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, toBroadcasterResponse(*entry)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSaveBroadcaster(c echo.Context) error {
	var req broadcasterRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	saved, err := s.broadcasters.Save(c.Request().Context(), domain.BroadcasterEntry{
		BroadcasterID:        c.Param("id"),
		DisplayName:          req.DisplayName,
		WebhookURL:           req.WebhookURL,
		RequiredTitleKeyword: req.RequiredTitleKeyword,
		Username:             req.Username,
		AvatarURL:            req.AvatarURL,
	})
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, toBroadcasterResponse(*saved)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteBroadcaster(c echo.Context) error {
	if err := s.broadcasters.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	if err := c.NoContent(http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

func (s *Server) registerRedirectRoutes() {
	s.echo.GET("/discord", s.redirectTo(s.config.DiscordInviteURL))
	s.echo.GET("/github", s.redirectTo(s.config.GitHubURL))
}

func (s *Server) redirectTo(target string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := c.Redirect(http.StatusFound, target); err != nil {
			return fmt.Errorf("failed to redirect: %w", err)
		}
		return nil
	}
}
