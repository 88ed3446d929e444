package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	// Overwrite
	require.NoError(t, s.Set(ctx, "k", "v2"))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestCollectionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	loaded, err := s.LoadCollection(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded, "fresh store should load an empty collection")

	collection := []ideas.Idea{
		{
			ID:               "b",
			Title:            "Second",
			Content:          "newer idea",
			Category:         "tech",
			GenerationMethod: ideas.MethodStreaming,
			Language:         "en",
			CreatedAt:        time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:               "a",
			Title:            "First",
			Content:          "older idea",
			Category:         "business",
			Rating:           4,
			GenerationMethod: ideas.MethodLLM,
			Language:         "en",
			CreatedAt:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, s.SaveCollection(ctx, collection))

	loaded, err = s.LoadCollection(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "b", loaded[0].ID, "order must be preserved")
	assert.Equal(t, "a", loaded[1].ID)
	assert.Equal(t, 4, loaded[1].Rating)

	// Save replaces, never appends.
	require.NoError(t, s.SaveCollection(ctx, collection[:1]))
	loaded, err = s.LoadCollection(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveCollection(ctx, []ideas.Idea{{ID: "x", Title: "t", Content: "c"}}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.LoadCollection(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "x", loaded[0].ID)
}
