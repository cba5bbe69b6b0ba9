package httpserver

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/OtterDevelopment/twitch-hook/internal/adapter/twitch"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/correlation"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// correlationMiddleware keys request logs on the EventSub message id when
// there is one, so redeliveries of the same notification share an id.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := correlation.FromMessageID(req.Context(), req.Header.Get(twitch.HeaderMessageID))
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

// requireSecret guards admin routes with the shared `secret` header.
func requireSecret(secret string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:secret",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(secret)) == 1, nil
		},
		ErrorHandler: func(_ error, _ echo.Context) error {
			return apperrors.AuthenticationError("invalid secret")
		},
	})
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if _, ok := errors.AsType[*echo.HTTPError](err); ok {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)

			if structuredErr.HTTPStatus() == http.StatusNoContent {
				return c.NoContent(http.StatusNoContent)
			}
			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeUnsupported, apperrors.TypeFiltered:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeAuthentication:
		slog.WarnContext(ctx, "Authentication failed", attrs...)
	default:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Request failed", attrs...)
	}
}
