package domain

import "context"

// EventSub message types carried in the Twitch-Eventsub-Message-Type header.
const (
	MessageTypeNotification = "notification"
	MessageTypeVerification = "webhook_callback_verification"
	MessageTypeRevocation   = "revocation"
)

// SubscriptionTypeStreamOnline is the only subscription type the relay acts on.
const SubscriptionTypeStreamOnline = "stream.online"

// SubscriptionRegistrar creates stream.online webhook subscriptions on Twitch.
type SubscriptionRegistrar interface {
	Register(ctx context.Context, token, broadcasterID string) (statusCode int, err error)
}

// MessageDeduplicator remembers EventSub message IDs so redeliveries are acknowledged once.
// Seen returns true if the ID was already recorded, and records it otherwise.
// Forget drops a recorded ID so a failed delivery can be retried by Twitch.
type MessageDeduplicator interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}
