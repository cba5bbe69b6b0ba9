package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const defaultDirectoryCacheTTL = 5 * time.Minute

// CacheObserver counts cache behaviour. *metrics.DirectoryCacheMetrics satisfies it.
type CacheObserver interface {
	Hit()
	Miss()
	Invalidated()
}

type noopCacheObserver struct{}

func (noopCacheObserver) Hit()         {}
func (noopCacheObserver) Miss()        {}
func (noopCacheObserver) Invalidated() {}

// DirectoryCache is a read-through cache in front of a broadcaster repository:
// process memory first, then Redis, then the repository. Writes go to the
// repository and invalidate both layers on every replica.
type DirectoryCache struct {
	rdb      goredis.Cmdable
	repo     domain.BroadcasterRepository
	mem      *memoryCache
	ttl      time.Duration
	observer CacheObserver
}

// NewDirectoryCache wraps repo. observer may be nil.
func NewDirectoryCache(rdb goredis.Cmdable, repo domain.BroadcasterRepository, ttl time.Duration, clock clockwork.Clock, observer CacheObserver) *DirectoryCache {
	if ttl <= 0 {
		ttl = defaultDirectoryCacheTTL
	}
	if observer == nil {
		observer = noopCacheObserver{}
	}
	return &DirectoryCache{
		rdb:      rdb,
		repo:     repo,
		mem:      newMemoryCache(ttl, clock),
		ttl:      ttl,
		observer: observer,
	}
}

// StartEvictionTimer runs a periodic goroutine that evicts expired in-memory entries.
// Returns a stop function that should be deferred.
func (c *DirectoryCache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.mem.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.mem.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired directory cache entries", "count", evicted, "remaining", c.mem.size())
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

func (c *DirectoryCache) Lookup(ctx context.Context, broadcasterID string) (*domain.BroadcasterEntry, error) {
	if entry, ok := c.mem.get(broadcasterID); ok {
		c.observer.Hit()
		return &entry, nil
	}

	if entry, ok := c.getCached(ctx, broadcasterID); ok {
		c.observer.Hit()
		c.mem.set(broadcasterID, entry)
		return &entry, nil
	}

	c.observer.Miss()
	entry, err := c.repo.Lookup(ctx, broadcasterID)
	if err != nil {
		return nil, err
	}

	c.mem.set(broadcasterID, *entry)
	c.writeCache(ctx, *entry)
	return entry, nil
}

// List always reads the repository; it backs admin calls, not the hot path.
func (c *DirectoryCache) List(ctx context.Context) ([]domain.BroadcasterEntry, error) {
	return c.repo.List(ctx)
}

func (c *DirectoryCache) Upsert(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error) {
	saved, err := c.repo.Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}
	c.invalidateEverywhere(ctx, entry.BroadcasterID)
	return saved, nil
}

func (c *DirectoryCache) Delete(ctx context.Context, broadcasterID string) error {
	if err := c.repo.Delete(ctx, broadcasterID); err != nil {
		return err
	}
	c.invalidateEverywhere(ctx, broadcasterID)
	return nil
}

// Invalidate evicts the entry from memory and Redis.
func (c *DirectoryCache) Invalidate(ctx context.Context, broadcasterID string) error {
	c.mem.invalidate(broadcasterID)
	c.observer.Invalidated()

	if err := c.rdb.Del(ctx, directoryCacheKey(broadcasterID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate directory cache: %w", err)
	}
	return nil
}

func (c *DirectoryCache) invalidateEverywhere(ctx context.Context, broadcasterID string) {
	if err := c.Invalidate(ctx, broadcasterID); err != nil {
		slog.WarnContext(ctx, "Directory cache invalidation failed", "broadcaster_id", broadcasterID, "error", err)
	}
	if err := PublishDirectoryInvalidation(ctx, c.rdb, broadcasterID); err != nil {
		slog.WarnContext(ctx, "Directory invalidation broadcast failed", "broadcaster_id", broadcasterID, "error", err)
	}
}

func (c *DirectoryCache) writeCache(ctx context.Context, entry domain.BroadcasterEntry) {
	encoded, err := json.Marshal(entry)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal broadcaster for Redis cache", "broadcaster_id", entry.BroadcasterID, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, directoryCacheKey(entry.BroadcasterID), encoded, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis directory cache", "broadcaster_id", entry.BroadcasterID, "error", err)
	}
}

func (c *DirectoryCache) getCached(ctx context.Context, broadcasterID string) (domain.BroadcasterEntry, bool) {
	data, err := c.rdb.Get(ctx, directoryCacheKey(broadcasterID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis directory cache GET failed", "broadcaster_id", broadcasterID, "error", err)
		}
		return domain.BroadcasterEntry{}, false
	}

	var entry domain.BroadcasterEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached broadcaster", "broadcaster_id", broadcasterID, "error", err)
		return domain.BroadcasterEntry{}, false
	}
	return entry, true
}

func directoryCacheKey(broadcasterID string) string {
	return "directory_cache:" + broadcasterID
}

// memoryCache is the in-process L1 layer with TTL-based expiry.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	entry     domain.BroadcasterEntry
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &memoryCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(broadcasterID string) (domain.BroadcasterEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[broadcasterID]
	if !ok || c.clock.Now().After(e.expiresAt) {
		return domain.BroadcasterEntry{}, false
	}
	return e.entry, true
}

func (c *memoryCache) set(broadcasterID string, entry domain.BroadcasterEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[broadcasterID] = memoryCacheEntry{entry: entry, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *memoryCache) invalidate(broadcasterID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, broadcasterID)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
