package rag

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/w-h-a/mnemo/memory/providers/vector"
	getsafe "github.com/w-h-a/mnemo/util/get_safe"
)

const noInformationAnswer = "I don't have any relevant information to answer that question."

type IngestResult struct {
	ChunksCreated int
	ChunksStored  int
	TotalWords    int
}

type QueryResult struct {
	Chunks  []vector.Entry
	Context string
}

type Answer struct {
	Answer  string
	Sources []vector.Entry
}

// Pipeline ingests documents into the semantic tier and answers questions
// against them.
type Pipeline struct {
	options Options
	chunker *Chunker
}

// Ingest loads a document, chunks it, embeds the chunks in one batch, and
// stores them. There is no rollback: if storage fails partway, chunks
// already written stay written and ChunksStored reports how many.
func (p *Pipeline) Ingest(ctx context.Context, userId string, path string, metadata map[string]any) (*IngestResult, error) {
	doc, err := p.options.Loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	chunks, err := p.chunker.Chunk(doc.Text, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	result := &IngestResult{
		ChunksCreated: len(chunks),
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		result.TotalWords += chunk.WordCount
	}

	embeddings, err := p.options.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if len(embeddings) != len(chunks) {
		return result, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	filename := getsafe.String(doc.Metadata, "filename")

	for i, chunk := range chunks {
		meta := map[string]any{}
		maps.Copy(meta, chunk.Metadata)
		meta["chunk_index"] = chunk.Index
		meta["word_count"] = chunk.WordCount
		meta["filename"] = filename

		if _, err := p.options.Storer.Store(ctx, userId, chunk.Text, embeddings[i], meta); err != nil {
			return result, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}

		result.ChunksStored++
	}

	return result, nil
}

// Query embeds the query text, searches the user's semantic entries, and
// frames the ranked hits into a single context string for prompt assembly.
func (p *Pipeline) Query(ctx context.Context, userId string, query string, topK int, threshold float64) (*QueryResult, error) {
	embedding, err := p.options.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	entries, err := p.options.Storer.Search(ctx, userId, embedding, topK, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var b strings.Builder

	for i, entry := range entries {
		filename := getsafe.String(entry.Metadata, "filename")
		if len(filename) == 0 {
			filename = "unknown"
		}

		fmt.Fprintf(&b, "[Source %d: %s (relevance: %.2f)]\n%s\n", i+1, filename, entry.Score, entry.Text)
	}

	return &QueryResult{
		Chunks:  entries,
		Context: b.String(),
	}, nil
}

// GenerateAnswer runs Query and conditions a completion on the retrieved
// context. Zero retrieved chunks is not an error: the caller gets a fixed
// no-information answer and the generator is never invoked.
func (p *Pipeline) GenerateAnswer(ctx context.Context, userId string, question string, topK int, threshold float64) (*Answer, error) {
	result, err := p.Query(ctx, userId, question, topK, threshold)
	if err != nil {
		return nil, err
	}

	if len(result.Chunks) == 0 {
		return &Answer{
			Answer:  noInformationAnswer,
			Sources: []vector.Entry{},
		}, nil
	}

	prompt := fmt.Sprintf(
		"Answer the question using only the context below. If the context does not contain the answer, say so.\n\nContext:\n%s\nQuestion: %s",
		result.Context,
		question,
	)

	completion, err := p.options.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{
		Answer:  completion,
		Sources: result.Chunks,
	}, nil
}

func NewPipeline(opts ...Option) *Pipeline {
	options := NewOptions(opts...)

	if options.Loader == nil {
		panic("a document loader is required")
	}

	if options.Embedder == nil {
		panic("an embedder is required")
	}

	if options.Storer == nil {
		panic("a vector storer is required")
	}

	return &Pipeline{
		options: options,
		chunker: NewChunker(opts...),
	}
}
