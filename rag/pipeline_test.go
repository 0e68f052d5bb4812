package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/mnemo/embedder/mock"
	vectormemory "github.com/w-h-a/mnemo/memory/providers/vector/memory"
	"github.com/w-h-a/mnemo/rag/loader/file"
)

type spyGenerator struct {
	called bool
	prompt string
}

func (g *spyGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.called = true
	g.prompt = prompt
	return "generated answer", nil
}

func writeDocument(t *testing.T, name string, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func newTestPipeline(t *testing.T, gen *spyGenerator) *Pipeline {
	t.Helper()

	return NewPipeline(
		WithLoader(file.NewLoader()),
		WithEmbedder(mock.NewEmbedder()),
		WithStorer(vectormemory.NewStorer()),
		WithGenerator(gen),
		WithChunkSize(50),
		WithOverlap(10),
		WithMinChunkSize(1),
	)
}

func TestPipeline_IngestAndQuery(t *testing.T) {
	ctx := context.Background()

	pipeline := newTestPipeline(t, &spyGenerator{})

	path := writeDocument(t, "notes.txt", "The quick brown fox jumps over the lazy dog.")

	result, err := pipeline.Ingest(ctx, "user-1", path, map[string]any{"topic": "animals"})
	require.NoError(t, err)
	require.Equal(t, 1, result.ChunksCreated)
	require.Equal(t, 1, result.ChunksStored)
	require.Equal(t, 9, result.TotalWords)

	// identical text embeds identically, so the exact sentence is a top hit
	query, err := pipeline.Query(ctx, "user-1", "The quick brown fox jumps over the lazy dog.", 5, 0.99)
	require.NoError(t, err)
	require.Len(t, query.Chunks, 1)

	require.Contains(t, query.Context, "[Source 1: notes.txt (relevance: 1.00)]")
	require.Contains(t, query.Context, "The quick brown fox jumps over the lazy dog.")

	require.Equal(t, "animals", query.Chunks[0].Metadata["topic"])
	require.Equal(t, "notes.txt", query.Chunks[0].Metadata["filename"])
	require.Equal(t, 0, query.Chunks[0].Metadata["chunk_index"])
	require.Equal(t, 9, query.Chunks[0].Metadata["word_count"])
}

func TestPipeline_QueryIsUserScoped(t *testing.T) {
	ctx := context.Background()

	pipeline := newTestPipeline(t, &spyGenerator{})

	path := writeDocument(t, "notes.txt", "Private notes belong to one user only.")

	_, err := pipeline.Ingest(ctx, "user-1", path, nil)
	require.NoError(t, err)

	query, err := pipeline.Query(ctx, "user-2", "Private notes belong to one user only.", 5, 0.5)
	require.NoError(t, err)
	require.Empty(t, query.Chunks)
	require.Empty(t, query.Context)
}

func TestPipeline_GenerateAnswer(t *testing.T) {
	ctx := context.Background()

	gen := &spyGenerator{}
	pipeline := newTestPipeline(t, gen)

	path := writeDocument(t, "facts.md", "Mount Everest is the tallest mountain on Earth.")

	_, err := pipeline.Ingest(ctx, "user-1", path, nil)
	require.NoError(t, err)

	answer, err := pipeline.GenerateAnswer(ctx, "user-1", "Mount Everest is the tallest mountain on Earth.", 3, 0.99)
	require.NoError(t, err)

	require.True(t, gen.called)
	require.Contains(t, gen.prompt, "[Source 1: facts.md")
	require.Contains(t, gen.prompt, "Mount Everest is the tallest mountain on Earth.")

	require.Equal(t, "generated answer", answer.Answer)
	require.Len(t, answer.Sources, 1)
}

func TestPipeline_GenerateAnswerShortCircuitsOnZeroHits(t *testing.T) {
	ctx := context.Background()

	gen := &spyGenerator{}
	pipeline := newTestPipeline(t, gen)

	answer, err := pipeline.GenerateAnswer(ctx, "user-1", "anything at all", 3, 0.5)
	require.NoError(t, err)

	require.False(t, gen.called)
	require.Equal(t, noInformationAnswer, answer.Answer)
	require.Empty(t, answer.Sources)
}

func TestPipeline_IngestRejectsUnsupportedFormat(t *testing.T) {
	ctx := context.Background()

	pipeline := newTestPipeline(t, &spyGenerator{})

	path := writeDocument(t, "report.pdf", "binary-ish")

	_, err := pipeline.Ingest(ctx, "user-1", path, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported document format")
}

func TestPipeline_IngestMissingFile(t *testing.T) {
	ctx := context.Background()

	pipeline := newTestPipeline(t, &spyGenerator{})

	_, err := pipeline.Ingest(ctx, "user-1", filepath.Join(t.TempDir(), "missing.txt"), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "document not found")
}
