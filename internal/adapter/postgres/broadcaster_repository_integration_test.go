package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spacedriveEntry() domain.BroadcasterEntry {
	return domain.BroadcasterEntry{
		BroadcasterID:        "160027788",
		DisplayName:          "Spacedrive",
		WebhookURL:           "https://discord.com/api/webhooks/1/spacedrive",
		RequiredTitleKeyword: "spacedrive",
	}
}

func TestBroadcasterRepo_UpsertInsert(t *testing.T) {
	repo := NewBroadcasterRepo(setupTestDB(t))
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, spacedriveEntry())
	require.NoError(t, err)

	assert.Equal(t, "160027788", saved.BroadcasterID)
	assert.Equal(t, "Spacedrive", saved.DisplayName)
	assert.Equal(t, "spacedrive", saved.RequiredTitleKeyword)
	assert.Empty(t, saved.Username)
	assert.WithinDuration(t, time.Now(), saved.CreatedAt, time.Minute)
}

func TestBroadcasterRepo_UpsertUpdate(t *testing.T) {
	repo := NewBroadcasterRepo(setupTestDB(t))
	ctx := context.Background()

	first, err := repo.Upsert(ctx, spacedriveEntry())
	require.NoError(t, err)

	changed := spacedriveEntry()
	changed.WebhookURL = "https://discord.com/api/webhooks/1/rotated"
	changed.RequiredTitleKeyword = ""
	changed.Username = "Spacedrive Live"
	second, err := repo.Upsert(ctx, changed)
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	assert.Equal(t, "https://discord.com/api/webhooks/1/rotated", second.WebhookURL)
	assert.Empty(t, second.RequiredTitleKeyword)
	assert.Equal(t, "Spacedrive Live", second.Username)
}

func TestBroadcasterRepo_Lookup(t *testing.T) {
	repo := NewBroadcasterRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, spacedriveEntry())
	require.NoError(t, err)

	entry, err := repo.Lookup(ctx, "160027788")
	require.NoError(t, err)
	assert.Equal(t, "https://discord.com/api/webhooks/1/spacedrive", entry.WebhookURL)

	_, err = repo.Lookup(ctx, "999")
	assert.ErrorIs(t, err, domain.ErrBroadcasterNotFound)
}

func TestBroadcasterRepo_ListOrdered(t *testing.T) {
	repo := NewBroadcasterRepo(setupTestDB(t))
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range []string{"42", "160027788", "1"} {
		e := spacedriveEntry()
		e.BroadcasterID = id
		_, err := repo.Upsert(ctx, e)
		require.NoError(t, err)
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "1", entries[0].BroadcasterID)
	assert.Equal(t, "160027788", entries[1].BroadcasterID)
	assert.Equal(t, "42", entries[2].BroadcasterID)
}

func TestBroadcasterRepo_Delete(t *testing.T) {
	repo := NewBroadcasterRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, spacedriveEntry())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "160027788"))
	assert.ErrorIs(t, repo.Delete(ctx, "160027788"), domain.ErrBroadcasterNotFound)

	_, err = repo.Lookup(ctx, "160027788")
	assert.ErrorIs(t, err, domain.ErrBroadcasterNotFound)
}
