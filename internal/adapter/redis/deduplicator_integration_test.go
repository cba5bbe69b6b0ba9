package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicator_Seen(t *testing.T) {
	client := setupTestClient(t)
	dedup := NewDeduplicator(client, time.Minute)
	ctx := context.Background()

	seen, err := dedup.Seen(ctx, "befa7b53-d79d-478f-86b9-120f112b044e")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = dedup.Seen(ctx, "befa7b53-d79d-478f-86b9-120f112b044e")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = dedup.Seen(ctx, "another-message")
	require.NoError(t, err)
	assert.False(t, seen)

	ttl, err := client.TTL(ctx, dedupKey("another-message")).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)
}

func TestDeduplicator_Forget(t *testing.T) {
	client := setupTestClient(t)
	dedup := NewDeduplicator(client, 0)
	ctx := context.Background()

	_, err := dedup.Seen(ctx, "msg-1")
	require.NoError(t, err)
	require.NoError(t, dedup.Forget(ctx, "msg-1"))

	seen, err := dedup.Seen(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
