package embedder

import "context"

// Embedder converts text into fixed-dimension vectors. EmbedBatch preserves
// input order: result i is the embedding of texts[i].
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
