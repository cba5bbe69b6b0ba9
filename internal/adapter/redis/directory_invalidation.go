package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

const directoryInvalidationChannel = "directory:invalidate"

// DirectoryInvalidationSubscriber drops cache entries changed by other replicas.
type DirectoryInvalidationSubscriber struct {
	rdb   *goredis.Client
	cache *DirectoryCache
}

func NewDirectoryInvalidationSubscriber(rdb *goredis.Client, cache *DirectoryCache) *DirectoryInvalidationSubscriber {
	return &DirectoryInvalidationSubscriber{rdb: rdb, cache: cache}
}

// Start blocks until ctx is cancelled.
func (s *DirectoryInvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, directoryInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}
			s.handleInvalidation(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *DirectoryInvalidationSubscriber) handleInvalidation(ctx context.Context, broadcasterID string) {
	if broadcasterID == "" {
		slog.WarnContext(ctx, "Empty directory invalidation message")
		return
	}

	s.cache.mem.invalidate(broadcasterID)
	slog.DebugContext(ctx, "Directory cache invalidated via pub/sub", "broadcaster_id", broadcasterID)
}

func PublishDirectoryInvalidation(ctx context.Context, rdb goredis.Cmdable, broadcasterID string) error {
	if err := rdb.Publish(ctx, directoryInvalidationChannel, broadcasterID).Err(); err != nil {
		return fmt.Errorf("failed to publish directory invalidation: %w", err)
	}
	return nil
}
