package domain

import (
	"context"
	"time"
)

// AccessToken is a Twitch app access token and its estimated expiry.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the expiry estimate has passed at now.
// An empty token is always expired.
func (t AccessToken) Expired(now time.Time) bool {
	if t.Value == "" {
		return true
	}
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenStore caches the current app access token.
// Load returns ErrTokenNotFound when nothing has been saved yet.
type TokenStore interface {
	Load(ctx context.Context) (AccessToken, error)
	Save(ctx context.Context, token AccessToken) error
}

// CredentialProvider hands out the cached app token and refreshes it on demand.
// Token never checks expiry; callers refresh reactively after a failed API call.
type CredentialProvider interface {
	Token(ctx context.Context) (AccessToken, error)
	Refresh(ctx context.Context) (AccessToken, error)
}
