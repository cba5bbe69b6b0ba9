package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mu       sync.Mutex
	entries  map[string]domain.BroadcasterEntry
	lookups  int
	lookupFn func(ctx context.Context, id string) (*domain.BroadcasterEntry, error)
}

func newMockRepository(entries ...domain.BroadcasterEntry) *mockRepository {
	m := &mockRepository{entries: map[string]domain.BroadcasterEntry{}}
	for _, e := range entries {
		m.entries[e.BroadcasterID] = e
	}
	return m
}

func (m *mockRepository) Lookup(ctx context.Context, id string) (*domain.BroadcasterEntry, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.lookupFn != nil {
		return m.lookupFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrBroadcasterNotFound
	}
	return &e, nil
}

func (m *mockRepository) List(context.Context) ([]domain.BroadcasterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.BroadcasterEntry{}
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockRepository) Upsert(_ context.Context, e domain.BroadcasterEntry) (*domain.BroadcasterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.BroadcasterID] = e
	return &e, nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return domain.ErrBroadcasterNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockRepository) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func spacedrive() domain.BroadcasterEntry {
	return domain.BroadcasterEntry{
		BroadcasterID: "160027788",
		DisplayName:   "Spacedrive",
		WebhookURL:    "https://discord.com/api/webhooks/1/spacedrive",
	}
}

// --- In-memory cache unit tests (no Redis needed) ---

func TestMemoryCache_HitAndExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newMemoryCache(10*time.Second, clock)

	_, hit := cache.get("160027788")
	assert.False(t, hit)

	cache.set("160027788", spacedrive())
	entry, hit := cache.get("160027788")
	require.True(t, hit)
	assert.Equal(t, "Spacedrive", entry.DisplayName)

	clock.Advance(11 * time.Second)
	_, hit = cache.get("160027788")
	assert.False(t, hit)
}

func TestMemoryCache_EvictExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newMemoryCache(10*time.Second, clock)

	cache.set("a", spacedrive())
	clock.Advance(5 * time.Second)
	cache.set("b", spacedrive())
	clock.Advance(6 * time.Second)

	assert.Equal(t, 1, cache.evictExpired())
	assert.Equal(t, 1, cache.size())
}

func TestDirectoryInvalidationSubscriber_HandleInvalidation(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{})
	cache := NewDirectoryCache(client, newMockRepository(), time.Minute, clockwork.NewFakeClock(), nil)
	sub := NewDirectoryInvalidationSubscriber(client, cache)

	cache.mem.set("160027788", spacedrive())
	cache.mem.set("42", spacedrive())

	sub.handleInvalidation(context.Background(), "160027788")
	sub.handleInvalidation(context.Background(), "")

	_, hit := cache.mem.get("160027788")
	assert.False(t, hit)
	_, hit = cache.mem.get("42")
	assert.True(t, hit)
}

type countingObserver struct{ hits, misses, invalidations int }

func (o *countingObserver) Hit()         { o.hits++ }
func (o *countingObserver) Miss()        { o.misses++ }
func (o *countingObserver) Invalidated() { o.invalidations++ }

// --- Redis-backed tests ---

func TestDirectoryCache_ReadThrough(t *testing.T) {
	client := setupTestClient(t)
	repo := newMockRepository(spacedrive())
	obs := &countingObserver{}
	cache := NewDirectoryCache(client, repo, time.Minute, clockwork.NewRealClock(), obs)
	ctx := context.Background()

	for range 3 {
		entry, err := cache.Lookup(ctx, "160027788")
		require.NoError(t, err)
		assert.Equal(t, "Spacedrive", entry.DisplayName)
	}
	assert.Equal(t, 1, repo.lookupCount())
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 2, obs.hits)

	exists, err := client.Exists(ctx, directoryCacheKey("160027788")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestDirectoryCache_RedisLayerServesColdProcess(t *testing.T) {
	client := setupTestClient(t)
	repo := newMockRepository(spacedrive())
	ctx := context.Background()

	warm := NewDirectoryCache(client, repo, time.Minute, clockwork.NewRealClock(), nil)
	_, err := warm.Lookup(ctx, "160027788")
	require.NoError(t, err)

	cold := NewDirectoryCache(client, repo, time.Minute, clockwork.NewRealClock(), nil)
	entry, err := cold.Lookup(ctx, "160027788")
	require.NoError(t, err)
	assert.Equal(t, "Spacedrive", entry.DisplayName)
	assert.Equal(t, 1, repo.lookupCount())
}

func TestDirectoryCache_NotFoundPassesThrough(t *testing.T) {
	cache := NewDirectoryCache(setupTestClient(t), newMockRepository(), time.Minute, clockwork.NewRealClock(), nil)

	_, err := cache.Lookup(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrBroadcasterNotFound)
}

func TestDirectoryCache_WritesInvalidate(t *testing.T) {
	client := setupTestClient(t)
	repo := newMockRepository(spacedrive())
	cache := NewDirectoryCache(client, repo, time.Minute, clockwork.NewRealClock(), nil)
	ctx := context.Background()

	_, err := cache.Lookup(ctx, "160027788")
	require.NoError(t, err)

	updated := spacedrive()
	updated.WebhookURL = "https://discord.com/api/webhooks/1/rotated"
	_, err = cache.Upsert(ctx, updated)
	require.NoError(t, err)

	entry, err := cache.Lookup(ctx, "160027788")
	require.NoError(t, err)
	assert.Equal(t, "https://discord.com/api/webhooks/1/rotated", entry.WebhookURL)

	require.NoError(t, cache.Delete(ctx, "160027788"))
	_, err = cache.Lookup(ctx, "160027788")
	assert.ErrorIs(t, err, domain.ErrBroadcasterNotFound)
}

func TestDirectoryInvalidation_MultiInstance(t *testing.T) {
	client := setupTestClient(t)
	repo := newMockRepository(spacedrive())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := NewDirectoryCache(client, repo, time.Minute, clockwork.NewRealClock(), nil)
	reader := NewDirectoryCache(client, repo, time.Minute, clockwork.NewRealClock(), nil)
	go NewDirectoryInvalidationSubscriber(client, reader).Start(ctx)

	_, err := reader.Lookup(ctx, "160027788")
	require.NoError(t, err)

	// Give the subscriber time to attach before publishing.
	time.Sleep(100 * time.Millisecond)

	updated := spacedrive()
	updated.DisplayName = "Spacedrive Live"
	_, err = writer.Upsert(ctx, updated)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entry, err := reader.Lookup(ctx, "160027788")
		return err == nil && entry.DisplayName == "Spacedrive Live"
	}, 2*time.Second, 20*time.Millisecond)
}
