package domain

import (
	"context"
	"time"
)

// BroadcasterEntry maps a Twitch broadcaster to the Discord webhook that announces their streams.
type BroadcasterEntry struct {
	BroadcasterID string
	DisplayName   string
	WebhookURL    string

	// RequiredTitleKeyword, when set, suppresses announcements whose stream
	// title does not contain it (case-insensitive).
	RequiredTitleKeyword string

	// Optional Discord webhook overrides.
	Username  string
	AvatarURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BroadcasterDirectory resolves broadcasters to their announcement target.
// Lookup returns ErrBroadcasterNotFound for unknown broadcasters.
type BroadcasterDirectory interface {
	Lookup(ctx context.Context, broadcasterID string) (*BroadcasterEntry, error)
	List(ctx context.Context) ([]BroadcasterEntry, error)
}

// BroadcasterRepository is a directory that can be administered at runtime.
type BroadcasterRepository interface {
	BroadcasterDirectory
	Upsert(ctx context.Context, entry BroadcasterEntry) (*BroadcasterEntry, error)
	Delete(ctx context.Context, broadcasterID string) error
}
