package domain

import "context"

// StreamSnapshot is the channel state fetched when a stream goes live. Never cached.
type StreamSnapshot struct {
	BroadcasterID          string
	BroadcasterDisplayName string
	Title                  string
}

// ChannelLookup is the raw outcome of a Helix channels request.
type ChannelLookup struct {
	StatusCode int
	Channels   []StreamSnapshot
}

// OK reports whether the upstream answered 200.
func (l *ChannelLookup) OK() bool {
	return l != nil && l.StatusCode == 200
}

// ChannelLookupClient fetches channel information with an explicit bearer token.
// Non-200 answers are reported through ChannelLookup.StatusCode, not as errors.
type ChannelLookupClient interface {
	LookupChannel(ctx context.Context, token, broadcasterID string) (*ChannelLookup, error)
}
