package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/w-h-a/mnemo/embedder"
)

// mockEmbedder produces deterministic unit vectors seeded by a text hash.
// Identical text always embeds identically, which is what tests and the
// demo need; there is no semantic signal.
type mockEmbedder struct {
	options embedder.Options
}

func (e *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, e.options.Dimensions)

	for i := range embedding {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

func (e *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}

	return vectors, nil
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}

	return vec
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if options.Dimensions == 0 {
		options.Dimensions = 384
	}

	return &mockEmbedder{
		options: options,
	}
}
