package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

const refreshKey = "app-token"

const refreshTimeout = 15 * time.Second

// CredentialManager owns the app access token. It never refreshes proactively;
// callers invoke Refresh after an API call is rejected.
type CredentialManager struct {
	store      domain.TokenStore
	grant      clientcredentials.Config
	httpClient *http.Client
	clock      clockwork.Clock
	group      singleflight.Group
}

func NewCredentialManager(clientID, clientSecret, tokenURL string, store domain.TokenStore, httpClient *http.Client, clock clockwork.Clock) *CredentialManager {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &CredentialManager{
		store: store,
		grant: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		clock:      clock,
	}
}

// Token returns the cached token without checking its expiry.
// An empty token is returned when nothing has been fetched yet.
func (m *CredentialManager) Token(ctx context.Context) (domain.AccessToken, error) {
	tok, err := m.store.Load(ctx)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return domain.AccessToken{}, nil
	}
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("failed to load access token: %w", err)
	}
	return tok, nil
}

// Refresh performs a client-credentials grant and replaces the cached token.
// Concurrent callers share a single request, which is detached from the
// cancellation of whichever caller started it.
func (m *CredentialManager) Refresh(ctx context.Context) (domain.AccessToken, error) {
	v, err, shared := m.group.Do(refreshKey, func() (any, error) {
		grantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(grantCtx)
	})
	if err != nil {
		return domain.AccessToken{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Joined in-flight token refresh")
	}
	return v.(domain.AccessToken), nil
}

func (m *CredentialManager) refresh(ctx context.Context) (domain.AccessToken, error) {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	raw, err := m.grant.Token(ctx)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("client credentials grant failed: %w", err)
	}

	tok := domain.AccessToken{Value: raw.AccessToken, ExpiresAt: raw.Expiry}
	if err := m.store.Save(ctx, tok); err != nil {
		return domain.AccessToken{}, fmt.Errorf("failed to store access token: %w", err)
	}

	attrs := []any{}
	if !tok.ExpiresAt.IsZero() {
		attrs = append(attrs, "expires_in_seconds", int(tok.ExpiresAt.Sub(m.clock.Now()).Seconds()))
	}
	slog.InfoContext(ctx, "App access token refreshed", attrs...)
	return tok, nil
}

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token domain.AccessToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(_ context.Context) (domain.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token.Value == "" {
		return domain.AccessToken{}, domain.ErrTokenNotFound
	}
	return s.token, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token domain.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}
