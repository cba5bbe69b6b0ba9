package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const appTokenKey = "twitch:app_token"

type storedToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore shares the app access token between replicas. The key expires
// together with the token.
type TokenStore struct {
	rdb   goredis.Cmdable
	clock clockwork.Clock
}

func NewTokenStore(rdb goredis.Cmdable, clock clockwork.Clock) *TokenStore {
	return &TokenStore{rdb: rdb, clock: clock}
}

func (s *TokenStore) Load(ctx context.Context) (domain.AccessToken, error) {
	data, err := s.rdb.Get(ctx, appTokenKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.AccessToken{}, domain.ErrTokenNotFound
	}
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("failed to read access token: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.AccessToken{}, fmt.Errorf("failed to decode access token: %w", err)
	}
	return domain.AccessToken{Value: st.Value, ExpiresAt: st.ExpiresAt}, nil
}

func (s *TokenStore) Save(ctx context.Context, token domain.AccessToken) error {
	encoded, err := json.Marshal(storedToken{Value: token.Value, ExpiresAt: token.ExpiresAt})
	if err != nil {
		return fmt.Errorf("failed to encode access token: %w", err)
	}

	var ttl time.Duration
	if !token.ExpiresAt.IsZero() {
		ttl = token.ExpiresAt.Sub(s.clock.Now())
		if ttl <= 0 {
			return s.rdb.Del(ctx, appTokenKey).Err()
		}
	}

	if err := s.rdb.Set(ctx, appTokenKey, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}
