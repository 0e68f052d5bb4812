package vector

import (
	"context"
	"math"
	"time"
)

// Entry is a stored semantic memory as it appears in search results. The
// embedding itself is never returned: results carry text, metadata, and the
// query-time similarity score only.
type Entry struct {
	Id        string         `json:"id"`
	UserId    string         `json:"user_id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float64        `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}

// Storer is the semantic memory tier. Search results are scoped to the
// user, ranked by descending cosine similarity, filtered to score >=
// threshold, and truncated to limit. Backends must produce the same ordered
// id set for identical inputs.
type Storer interface {
	// Init prepares the backing collection. Idempotent.
	Init(ctx context.Context) error
	Store(ctx context.Context, userId string, text string, embedding []float32, metadata map[string]any) (string, error)
	Search(ctx context.Context, userId string, embedding []float32, limit int, threshold float64) ([]Entry, error)
	Delete(ctx context.Context, userId string, id string) (bool, error)
	DeleteUser(ctx context.Context, userId string) (int, error)
}

// CosineSimilarity computes cosine similarity over two equal-length vectors
// with float64 accumulation. Mismatched, empty, or zero-norm inputs score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
