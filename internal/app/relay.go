package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
	"github.com/jonboulle/clockwork"
)

const defaultDispatchTimeout = 15 * time.Second

// Observer receives relay outcomes. *metrics.RelayMetrics satisfies it.
type Observer interface {
	Lookup(status int)
	TokenRefresh(err error)
	Announcement(outcome string, seconds float64)
}

type noopObserver struct{}

func (noopObserver) Lookup(int) {}
func (noopObserver) TokenRefresh(error) {}
func (noopObserver) Announcement(string, float64) {}

// Relay handles stream.online notifications: look up the channel, refreshing the
// app token at most once, then announce in the background.
type Relay struct {
	credentials     domain.CredentialProvider
	channels        domain.ChannelLookupClient
	announcer       *Announcer
	observer        Observer
	clock           clockwork.Clock
	dispatchTimeout time.Duration
	inflight        sync.WaitGroup
}

// NewRelay creates the relay. observer may be nil.
func NewRelay(credentials domain.CredentialProvider, channels domain.ChannelLookupClient, announcer *Announcer, observer Observer, clock clockwork.Clock, dispatchTimeout time.Duration) *Relay {
	if observer == nil {
		observer = noopObserver{}
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	return &Relay{
		credentials:     credentials,
		channels:        channels,
		announcer:       announcer,
		observer:        observer,
		clock:           clock,
		dispatchTimeout: dispatchTimeout,
	}
}

// HandleStreamOnline returns once the stream lookup is settled. The announcement
// is not awaited; its failures are logged and never reach the caller.
func (r *Relay) HandleStreamOnline(ctx context.Context, broadcasterID string) error {
	snapshot, err := r.fetchStream(ctx, broadcasterID)
	if err != nil {
		return err
	}

	r.inflight.Add(1)
	go r.announce(context.WithoutCancel(ctx), *snapshot)
	return nil
}

func (r *Relay) fetchStream(ctx context.Context, broadcasterID string) (*domain.StreamSnapshot, error) {
	token, err := r.credentials.Token(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Cached access token unavailable", "error", err)
	}

	lookup, lookupErr := r.lookup(ctx, token.Value, broadcasterID)
	if !lookup.OK() {
		refreshed, err := r.credentials.Refresh(ctx)
		r.observer.TokenRefresh(err)
		if err != nil {
			return nil, apperrors.UpstreamTokenError("app access token refresh failed", err).
				WithContext("broadcaster_id", broadcasterID)
		}

		lookup, lookupErr = r.lookup(ctx, refreshed.Value, broadcasterID)
		if !lookup.OK() {
			cause := lookupErr
			if cause == nil {
				cause = domain.ErrUpstreamToken
			}
			return nil, apperrors.UpstreamTokenError("stream lookup failed after token refresh", cause).
				WithContext("broadcaster_id", broadcasterID).
				WithContext("status", statusOf(lookup))
		}
	}

	if len(lookup.Channels) == 0 || lookup.Channels[0].BroadcasterDisplayName == "" {
		return nil, apperrors.InvalidStreamError("channel lookup returned no broadcaster name", domain.ErrInvalidStreamData).
			WithContext("broadcaster_id", broadcasterID)
	}

	snapshot := lookup.Channels[0]
	if snapshot.BroadcasterID == "" {
		snapshot.BroadcasterID = broadcasterID
	}
	return &snapshot, nil
}

func (r *Relay) lookup(ctx context.Context, token, broadcasterID string) (*domain.ChannelLookup, error) {
	lookup, err := r.channels.LookupChannel(ctx, token, broadcasterID)
	r.observer.Lookup(statusOf(lookup))
	if err != nil {
		slog.WarnContext(ctx, "Channel lookup failed", "broadcaster_id", broadcasterID, "error", err)
		return nil, err
	}
	if !lookup.OK() {
		slog.WarnContext(ctx, "Channel lookup rejected", "broadcaster_id", broadcasterID, "status", lookup.StatusCode)
	}
	return lookup, nil
}

func (r *Relay) announce(ctx context.Context, snapshot domain.StreamSnapshot) {
	defer r.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, r.dispatchTimeout)
	defer cancel()

	start := r.clock.Now()
	outcome, err := r.announcer.Announce(ctx, snapshot)
	var elapsed float64
	if outcome == OutcomeSent || outcome == OutcomeFailed {
		elapsed = r.clock.Since(start).Seconds()
	}
	r.observer.Announcement(outcome, elapsed)

	if err != nil {
		slog.ErrorContext(ctx, "Announcement dropped", "broadcaster_id", snapshot.BroadcasterID, "error", err)
	}
}

// Wait blocks until in-flight announcements finish or ctx is done.
func (r *Relay) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func statusOf(lookup *domain.ChannelLookup) int {
	if lookup == nil {
		return 0
	}
	return lookup.StatusCode
}
