package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultDedupWindow = 10 * time.Minute

// Deduplicator records EventSub message IDs with SET NX so Twitch redeliveries
// are acknowledged without being processed twice.
type Deduplicator struct {
	rdb    goredis.Cmdable
	window time.Duration
}

func NewDeduplicator(rdb goredis.Cmdable, window time.Duration) *Deduplicator {
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &Deduplicator{rdb: rdb, window: window}
}

// Seen returns true if messageID was recorded within the window, and records it otherwise.
func (d *Deduplicator) Seen(ctx context.Context, messageID string) (bool, error) {
	args := goredis.SetArgs{TTL: d.window, Mode: "NX"}
	_, err := d.rdb.SetArgs(ctx, dedupKey(messageID), "1", args).Result()
	if errors.Is(err, goredis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record message id: %w", err)
	}
	return false, nil
}

func (d *Deduplicator) Forget(ctx context.Context, messageID string) error {
	if err := d.rdb.Del(ctx, dedupKey(messageID)).Err(); err != nil {
		return fmt.Errorf("failed to release message id: %w", err)
	}
	return nil
}

func dedupKey(messageID string) string {
	return "eventsub:message:" + messageID
}
