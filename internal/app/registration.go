package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
	"golang.org/x/sync/errgroup"
)

const registrationConcurrency = 4

// Registrar subscribes every broadcaster in the directory to stream.online.
type Registrar struct {
	directory     domain.BroadcasterDirectory
	credentials   domain.CredentialProvider
	subscriptions domain.SubscriptionRegistrar
}

func NewRegistrar(directory domain.BroadcasterDirectory, credentials domain.CredentialProvider, subscriptions domain.SubscriptionRegistrar) *Registrar {
	return &Registrar{
		directory:     directory,
		credentials:   credentials,
		subscriptions: subscriptions,
	}
}

// RegisterAll refreshes the app token and creates one subscription per broadcaster.
// Individual failures are logged; the count covers successful registrations only.
func (r *Registrar) RegisterAll(ctx context.Context) (int, error) {
	entries, err := r.directory.List(ctx)
	if err != nil {
		return 0, apperrors.InternalError("failed to list broadcasters", err)
	}

	token, err := r.credentials.Refresh(ctx)
	if err != nil {
		return 0, apperrors.UpstreamTokenError("app access token refresh failed", err)
	}

	var registered atomic.Int64
	var g errgroup.Group
	g.SetLimit(registrationConcurrency)

	for _, entry := range entries {
		g.Go(func() error {
			status, err := r.subscriptions.Register(ctx, token.Value, entry.BroadcasterID)
			if err != nil {
				slog.ErrorContext(ctx, "Broadcaster registration failed", "broadcaster_id", entry.BroadcasterID, "status", status, "error", err)
				return nil
			}
			registered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(registered.Load())
	slog.InfoContext(ctx, "Broadcaster registration finished", "registered", n, "total", len(entries))
	return n, nil
}

// RegisteredMessage is the admin API reply body text.
func RegisteredMessage(n int) string {
	return fmt.Sprintf("Registered %d broadcasters.", n)
}
