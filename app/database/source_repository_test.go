package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "wired", "https://example.com/rss", "rss"))

	status, err := repo.Get(ctx, "wired")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/rss", status.URL)
	assert.Nil(t, status.LastFetchedAt)
	assert.Zero(t, status.ConsecutiveFailures)

	at := time.Date(2025, 5, 24, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordFailure(ctx, "wired", at, errors.New("timeout")))
	require.NoError(t, repo.RecordFailure(ctx, "wired", at.Add(time.Minute), errors.New("timeout again")))

	status, err = repo.Get(ctx, "wired")
	require.NoError(t, err)
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.Equal(t, "timeout again", status.LastError)
	assert.Nil(t, status.LastSuccessAt)
	require.NotNil(t, status.LastFetchedAt)
	assert.True(t, status.LastFetchedAt.Equal(at.Add(time.Minute)))

	require.NoError(t, repo.RecordSuccess(ctx, "wired", at.Add(2*time.Minute), 12))

	status, err = repo.Get(ctx, "wired")
	require.NoError(t, err)
	assert.Zero(t, status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 12, status.ItemCount)
	require.NotNil(t, status.LastSuccessAt)

	// re-registering keeps health data
	require.NoError(t, repo.Upsert(ctx, "wired", "https://example.com/feed", "rss"))
	status, err = repo.Get(ctx, "wired")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/feed", status.URL)
	assert.Equal(t, 12, status.ItemCount)
}

func TestSourceRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "zeta", "https://z.example.com", "rss"))
	require.NoError(t, repo.Upsert(ctx, "alpha", "https://a.example.com", "newsapi"))

	statuses, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "alpha", statuses[0].Name)
	assert.Equal(t, "newsapi", statuses[0].Kind)
}

func TestSourceRepository_UnknownSource(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceRepository(newTestDB(t))

	err := repo.RecordSuccess(ctx, "ghost", time.Now(), 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.Get(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}
