package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
)

// --- Mock implementations ---

type mockCredentials struct {
	mu        sync.Mutex
	token     domain.AccessToken
	tokenErr  error
	refreshFn func(ctx context.Context) (domain.AccessToken, error)
	refreshes int
}

func (m *mockCredentials) Token(_ context.Context) (domain.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.tokenErr
}

func (m *mockCredentials) Refresh(ctx context.Context) (domain.AccessToken, error) {
	m.mu.Lock()
	m.refreshes++
	m.mu.Unlock()
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return domain.AccessToken{Value: "fresh-token"}, nil
}

func (m *mockCredentials) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

type mockChannels struct {
	mu       sync.Mutex
	lookupFn func(ctx context.Context, token, broadcasterID string) (*domain.ChannelLookup, error)
	tokens   []string
}

func (m *mockChannels) LookupChannel(ctx context.Context, token, broadcasterID string) (*domain.ChannelLookup, error) {
	m.mu.Lock()
	m.tokens = append(m.tokens, token)
	m.mu.Unlock()
	if m.lookupFn != nil {
		return m.lookupFn(ctx, token, broadcasterID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockChannels) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type mockDirectory struct {
	entries map[string]domain.BroadcasterEntry
	err     error
}

func (m *mockDirectory) Lookup(_ context.Context, broadcasterID string) (*domain.BroadcasterEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[broadcasterID]
	if !ok {
		return nil, domain.ErrBroadcasterNotFound
	}
	return &e, nil
}

func (m *mockDirectory) List(_ context.Context) ([]domain.BroadcasterEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.BroadcasterEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

type mockRepository struct {
	mockDirectory
	upsertFn func(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error)
	deleteFn func(ctx context.Context, broadcasterID string) error
}

func (m *mockRepository) Upsert(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entry)
	}
	return &entry, nil
}

func (m *mockRepository) Delete(ctx context.Context, broadcasterID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, broadcasterID)
	}
	return nil
}

type mockSender struct {
	mu   sync.Mutex
	sent []domain.Announcement
	err  error
	done chan struct{}
}

func newMockSender() *mockSender {
	return &mockSender{done: make(chan struct{}, 16)}
}

func (m *mockSender) Send(_ context.Context, a domain.Announcement) error {
	m.mu.Lock()
	m.sent = append(m.sent, a)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func (m *mockSender) messages() []domain.Announcement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Announcement(nil), m.sent...)
}

type mockSubscriptions struct {
	mu         sync.Mutex
	registerFn func(ctx context.Context, token, broadcasterID string) (int, error)
	seen       []string
}

func (m *mockSubscriptions) Register(ctx context.Context, token, broadcasterID string) (int, error) {
	m.mu.Lock()
	m.seen = append(m.seen, token+"/"+broadcasterID)
	m.mu.Unlock()
	if m.registerFn != nil {
		return m.registerFn(ctx, token, broadcasterID)
	}
	return 202, nil
}

type recordingObserver struct {
	mu            sync.Mutex
	lookups       []int
	refreshes     []error
	announcements []string
}

func (o *recordingObserver) Lookup(status int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups = append(o.lookups, status)
}

func (o *recordingObserver) TokenRefresh(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshes = append(o.refreshes, err)
}

func (o *recordingObserver) Announcement(outcome string, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.announcements = append(o.announcements, outcome)
}

func okLookup(broadcasterID, name, title string) *domain.ChannelLookup {
	return &domain.ChannelLookup{
		StatusCode: 200,
		Channels: []domain.StreamSnapshot{{
			BroadcasterID:          broadcasterID,
			BroadcasterDisplayName: name,
			Title:                  title,
		}},
	}
}
