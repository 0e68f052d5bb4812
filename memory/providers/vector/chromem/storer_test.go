package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/mnemo/memory/providers/vector"
	memorystorer "github.com/w-h-a/mnemo/memory/providers/vector/memory"
)

func TestChromemStorer_StoreAndSearch(t *testing.T) {
	s := NewStorer()
	ctx := context.Background()

	_, err := s.Store(ctx, "u1", "the user likes sailing", []float32{1, 0, 0}, map[string]any{"topic": "hobby"})
	require.NoError(t, err)
	_, err = s.Store(ctx, "u1", "the user lives in Porto", []float32{0, 1, 0}, nil)
	require.NoError(t, err)

	results, err := s.Search(ctx, "u1", []float32{1, 0, 0}, 5, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "the user likes sailing", results[0].Text)
	require.Equal(t, "hobby", results[0].Metadata["topic"])
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestChromemStorer_EmptyCollection(t *testing.T) {
	s := NewStorer()

	results, err := s.Search(context.Background(), "u1", []float32{1, 0}, 5, 0.0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestChromemStorer_DeleteAndDeleteUser(t *testing.T) {
	s := NewStorer()
	ctx := context.Background()

	id, err := s.Store(ctx, "u1", "first", []float32{1, 0}, nil)
	require.NoError(t, err)
	_, err = s.Store(ctx, "u1", "second", []float32{0, 1}, nil)
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, "u1", id)
	require.NoError(t, err)
	require.True(t, deleted)

	count, err := s.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = s.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, count)
}

// The embedded backend and the in-process fallback must rank identically
// for identical inputs so they are interchangeable behind the Storer
// interface.
func TestChromemStorer_MatchesMemoryBackend(t *testing.T) {
	ctx := context.Background()

	embedded := NewStorer()
	fallback := memorystorer.NewStorer()

	entries := []struct {
		text      string
		embedding []float32
	}{
		{"alpha", []float32{1, 0, 0}},
		{"beta", []float32{0.8, 0.6, 0}},
		{"gamma", []float32{0, 1, 0}},
		{"delta", []float32{0.6, 0.8, 0}},
	}

	for _, e := range entries {
		_, err := embedded.Store(ctx, "u1", e.text, e.embedding, nil)
		require.NoError(t, err)
		_, err = fallback.Store(ctx, "u1", e.text, e.embedding, nil)
		require.NoError(t, err)
	}

	query := []float32{1, 0, 0}

	for _, backend := range []vector.Storer{embedded, fallback} {
		results, err := backend.Search(ctx, "u1", query, 3, 0.7)
		require.NoError(t, err)
		require.Len(t, results, 2)
		require.Equal(t, "alpha", results[0].Text)
		require.Equal(t, "beta", results[1].Text)
		require.InDelta(t, 1.0, results[0].Score, 1e-6)
		require.InDelta(t, 0.8, results[1].Score, 1e-6)
	}
}
