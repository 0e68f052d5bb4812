package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorer_SearchRanksFiltersAndTruncates(t *testing.T) {
	s := NewStorer()
	ctx := context.Background()

	_, err := s.Store(ctx, "u1", "exact", []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	_, err = s.Store(ctx, "u1", "close", []float32{0.9, 0.1, 0}, nil)
	require.NoError(t, err)
	_, err = s.Store(ctx, "u1", "far", []float32{0, 1, 0}, nil)
	require.NoError(t, err)
	_, err = s.Store(ctx, "u2", "other user", []float32{1, 0, 0}, nil)
	require.NoError(t, err)

	results, err := s.Search(ctx, "u1", []float32{1, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "exact", results[0].Text)
	require.Equal(t, "close", results[1].Text)
	require.Greater(t, results[0].Score, results[1].Score)
	for _, entry := range results {
		require.GreaterOrEqual(t, entry.Score, 0.5)
		require.Equal(t, "u1", entry.UserId)
	}

	// limit truncates after ranking
	results, err = s.Search(ctx, "u1", []float32{1, 0, 0}, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "exact", results[0].Text)
}

func TestMemoryStorer_SearchUnknownUser(t *testing.T) {
	s := NewStorer()

	results, err := s.Search(context.Background(), "nobody", []float32{1, 0}, 5, 0.0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMemoryStorer_Delete(t *testing.T) {
	s := NewStorer()
	ctx := context.Background()

	id, err := s.Store(ctx, "u1", "to remove", []float32{1, 0}, nil)
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, "u1", id)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = s.Delete(ctx, "u1", id)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestMemoryStorer_DeleteUser(t *testing.T) {
	s := NewStorer()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Store(ctx, "u1", "entry", []float32{1, 0}, nil)
		require.NoError(t, err)
	}
	_, err := s.Store(ctx, "u2", "keep", []float32{1, 0}, nil)
	require.NoError(t, err)

	count, err := s.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	results, err := s.Search(ctx, "u1", []float32{1, 0}, 5, 0.0)
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = s.Search(ctx, "u2", []float32{1, 0}, 5, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestMemoryStorer_MetadataCarriesThrough(t *testing.T) {
	s := NewStorer()
	ctx := context.Background()

	_, err := s.Store(ctx, "u1", "entry", []float32{1, 0}, map[string]any{"tag": "x"})
	require.NoError(t, err)

	results, err := s.Search(ctx, "u1", []float32{1, 0}, 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "x", results[0].Metadata["tag"])
	require.NotEmpty(t, results[0].Id)
}
