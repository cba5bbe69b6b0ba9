package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/retry"
	"github.com/nicklaw5/helix/v2"
)

const (
	retryInitialBackoff   = 1 * time.Second
	retryRateLimitBackoff = 30 * time.Second
)

// statusError carries a non-success Helix answer through the retry classifier.
type statusError struct {
	StatusCode int
	Message    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("helix returned %d: %s", e.StatusCode, e.Message)
}

// SubscriptionRegistrar creates stream.online webhook subscriptions pointing back at this relay.
type SubscriptionRegistrar struct {
	helix       *HelixClient
	callbackURL string
	secret      string
	policy      retry.Policy
}

func NewSubscriptionRegistrar(h *HelixClient, callbackURL, secret string) *SubscriptionRegistrar {
	return &SubscriptionRegistrar{
		helix:       h,
		callbackURL: callbackURL,
		secret:      secret,
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   retryInitialBackoff,
			RateLimitBackoff: retryRateLimitBackoff,
		},
	}
}

// Register creates the subscription and returns Twitch's status code.
// 409 means the subscription already exists and is treated as success.
func (r *SubscriptionRegistrar) Register(ctx context.Context, token, broadcasterID string) (int, error) {
	p := r.policy
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "EventSub subscribe failed, retrying", "broadcaster_id", broadcasterID, "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
	}

	status, err := retry.Do(ctx, p, classifyEventSubError, func() (int, error) {
		return r.attempt(ctx, token, broadcasterID)
	})
	if err != nil {
		label := "after retries"
		if _, ok := errors.AsType[*retry.PermanentError](err); ok {
			label = "permanent"
		}
		if se, ok := errors.AsType[*statusError](err); ok {
			status = se.StatusCode
		}
		return status, fmt.Errorf("EventSub subscribe failed (%s): %w", label, err)
	}

	if status == http.StatusConflict {
		slog.InfoContext(ctx, "EventSub subscription already exists", "broadcaster_id", broadcasterID)
	} else {
		slog.InfoContext(ctx, "Subscribed to stream.online", "broadcaster_id", broadcasterID)
	}
	return status, nil
}

func (r *SubscriptionRegistrar) attempt(ctx context.Context, token, broadcasterID string) (int, error) {
	var resp *helix.EventSubSubscriptionsResponse
	err := r.helix.with(ctx, token, func(c *helix.Client) error {
		var err error
		resp, err = c.CreateEventSubSubscription(&helix.EventSubSubscription{
			Type:    domain.SubscriptionTypeStreamOnline,
			Version: "1",
			Condition: helix.EventSubCondition{
				BroadcasterUserID: broadcasterID,
			},
			Transport: helix.EventSubTransport{
				Method:   "webhook",
				Callback: r.callbackURL,
				Secret:   r.secret,
			},
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create EventSub subscription: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK, http.StatusConflict:
		return resp.StatusCode, nil
	default:
		return resp.StatusCode, &statusError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage}
	}
}

func classifyEventSubError(err error) retry.Action {
	se, ok := errors.AsType[*statusError](err)
	if !ok {
		return retry.Retry
	}

	switch {
	case se.StatusCode == http.StatusTooManyRequests:
		return retry.After
	case se.StatusCode >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}
