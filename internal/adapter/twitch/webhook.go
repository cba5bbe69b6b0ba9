package twitch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/nicklaw5/helix/v2"
)

const (
	headerMessageType      = "Twitch-Eventsub-Message-Type"
	headerMessageID        = "Twitch-Eventsub-Message-Id"
	headerMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	headerMessageSignature = "Twitch-Eventsub-Message-Signature"

	maxWebhookBody = 1 << 20
)

// eventSubNotification is the EventSub webhook envelope; helix does not ship one.
type eventSubNotification struct {
	Subscription helix.EventSubSubscription `json:"subscription"`
	Challenge    string                     `json:"challenge"`
}

// HeaderMessageID is exported for middleware that keys logs on the delivery.
const HeaderMessageID = headerMessageID

// StreamOnlineHandler reacts to a verified stream.online notification.
type StreamOnlineHandler interface {
	HandleStreamOnline(ctx context.Context, broadcasterID string) error
}

// MessageObserver records the outcome of each delivery.
type MessageObserver interface {
	Message(messageType string, status int)
}

type WebhookHandler struct {
	verifier *Verifier
	relay    StreamOnlineHandler
	dedup    domain.MessageDeduplicator
	observer MessageObserver
}

// NewWebhookHandler wires the EventSub callback. dedup and observer may be nil.
func NewWebhookHandler(verifier *Verifier, relay StreamOnlineHandler, dedup domain.MessageDeduplicator, observer MessageObserver) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		relay:    relay,
		dedup:    dedup,
		observer: observer,
	}
}

// HandleEventSub serves POST /callback. Responses are status-only except for the challenge echo.
func (wh *WebhookHandler) HandleEventSub(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	msgType := req.Header.Get(headerMessageType)

	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read EventSub body", "error", err)
		return wh.respond(c, msgType, http.StatusBadRequest)
	}

	switch msgType {
	case domain.MessageTypeNotification:
		return wh.handleNotification(c, body)
	case domain.MessageTypeRevocation:
		return wh.handleRevocation(c, body)
	default:
		return wh.handleChallenge(c, body)
	}
}

func (wh *WebhookHandler) authentic(c echo.Context, body []byte) bool {
	h := c.Request().Header
	return wh.verifier.Verify(h.Get(headerMessageID), h.Get(headerMessageTimestamp), h.Get(headerMessageSignature), body)
}

func (wh *WebhookHandler) handleChallenge(c echo.Context, body []byte) error {
	ctx := c.Request().Context()
	msgType := c.Request().Header.Get(headerMessageType)

	if !wh.authentic(c, body) {
		slog.WarnContext(ctx, "Rejected EventSub challenge with invalid signature", "message_type", msgType)
		return wh.respond(c, msgType, http.StatusForbidden)
	}

	var envelope eventSubNotification
	if err := json.Unmarshal(body, &envelope); err != nil {
		slog.WarnContext(ctx, "Malformed EventSub challenge body", "error", err)
		return wh.respond(c, msgType, http.StatusBadRequest)
	}

	slog.InfoContext(ctx, "EventSub webhook verification", "subscription_type", envelope.Subscription.Type, "broadcaster_id", envelope.Subscription.Condition.BroadcasterUserID)
	wh.observe(msgType, http.StatusOK)
	return c.String(http.StatusOK, envelope.Challenge)
}

func (wh *WebhookHandler) handleRevocation(c echo.Context, body []byte) error {
	ctx := c.Request().Context()
	msgType := domain.MessageTypeRevocation

	if !wh.authentic(c, body) {
		slog.WarnContext(ctx, "Rejected EventSub revocation with invalid signature")
		return wh.respond(c, msgType, http.StatusForbidden)
	}

	var envelope eventSubNotification
	if err := json.Unmarshal(body, &envelope); err != nil {
		slog.WarnContext(ctx, "Malformed EventSub revocation body", "error", err)
		return wh.respond(c, msgType, http.StatusBadRequest)
	}

	slog.WarnContext(ctx, "EventSub subscription revoked",
		"subscription_id", envelope.Subscription.ID,
		"type", envelope.Subscription.Type,
		"broadcaster_id", envelope.Subscription.Condition.BroadcasterUserID,
		"reason", envelope.Subscription.Status)
	return wh.respond(c, msgType, http.StatusNoContent)
}

func (wh *WebhookHandler) handleNotification(c echo.Context, body []byte) error {
	req := c.Request()
	ctx := req.Context()
	msgType := domain.MessageTypeNotification
	messageID := req.Header.Get(headerMessageID)

	if messageID == "" || req.Header.Get(headerMessageTimestamp) == "" {
		slog.WarnContext(ctx, "Rejected EventSub notification without message id or timestamp")
		return wh.respond(c, msgType, http.StatusForbidden)
	}
	if !wh.authentic(c, body) {
		slog.WarnContext(ctx, "Rejected EventSub notification with invalid signature")
		return wh.respond(c, msgType, http.StatusForbidden)
	}

	var envelope eventSubNotification
	if err := json.Unmarshal(body, &envelope); err != nil {
		slog.WarnContext(ctx, "Malformed EventSub notification body", "error", err)
		return wh.respond(c, msgType, http.StatusBadRequest)
	}

	if envelope.Subscription.Type != domain.SubscriptionTypeStreamOnline {
		slog.InfoContext(ctx, "Ignoring EventSub notification", "subscription_type", envelope.Subscription.Type)
		return wh.respond(c, msgType, http.StatusNoContent)
	}

	broadcasterID := envelope.Subscription.Condition.BroadcasterUserID
	if broadcasterID == "" {
		slog.WarnContext(ctx, "stream.online notification without broadcaster_user_id")
		return wh.respond(c, msgType, http.StatusBadRequest)
	}

	if wh.dedup != nil {
		seen, err := wh.dedup.Seen(ctx, messageID)
		if err != nil {
			slog.WarnContext(ctx, "Message deduplication unavailable, processing anyway", "error", err)
		} else if seen {
			slog.InfoContext(ctx, "Duplicate EventSub delivery acknowledged", "broadcaster_id", broadcasterID)
			return wh.respond(c, msgType, http.StatusNoContent)
		}
	}

	if err := wh.relay.HandleStreamOnline(ctx, broadcasterID); err != nil {
		status := apperrors.AsStructuredError(err).HTTPStatus()
		slog.ErrorContext(ctx, "stream.online handling failed", "broadcaster_id", broadcasterID, "status", status, "error", err)

		if wh.dedup != nil {
			if ferr := wh.dedup.Forget(ctx, messageID); ferr != nil {
				slog.WarnContext(ctx, "Failed to release message id after error", "error", ferr)
			}
		}
		return wh.respond(c, msgType, status)
	}

	return wh.respond(c, msgType, http.StatusNoContent)
}

func (wh *WebhookHandler) respond(c echo.Context, msgType string, status int) error {
	wh.observe(msgType, status)
	return c.NoContent(status)
}

func (wh *WebhookHandler) observe(msgType string, status int) {
	if wh.observer != nil {
		wh.observer.Message(msgType, status)
	}
}
