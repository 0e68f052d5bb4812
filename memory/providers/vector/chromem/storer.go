package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"github.com/w-h-a/mnemo/memory/providers/vector"
)

// chromemStorer backs the semantic tier with chromem-go, a pure Go embedded
// vector database. Each user gets their own collection for isolation.
type chromemStorer struct {
	options     vector.Options
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mtx         sync.RWMutex
}

func (s *chromemStorer) Init(ctx context.Context) error {
	return nil
}

func (s *chromemStorer) Store(ctx context.Context, userId string, text string, embedding []float32, metadata map[string]any) (string, error) {
	col, err := s.collection(userId)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	doc := chromem.Document{
		ID:        id,
		Content:   text,
		Embedding: embedding,
		Metadata: map[string]string{
			"user_id":    userId,
			"meta":       string(metaJSON),
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}

	return id, nil
}

func (s *chromemStorer) Search(ctx context.Context, userId string, embedding []float32, limit int, threshold float64) ([]vector.Entry, error) {
	if limit < 1 {
		return nil, nil
	}

	col, err := s.collection(userId)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size
	n := limit
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	entries := make([]vector.Entry, 0, len(results))

	for _, result := range results {
		score := float64(result.Similarity)
		if score < threshold {
			continue
		}

		var meta map[string]any
		if raw, ok := result.Metadata["meta"]; ok {
			_ = json.Unmarshal([]byte(raw), &meta)
		}

		createdAt, _ := time.Parse(time.RFC3339Nano, result.Metadata["created_at"])

		entries = append(entries, vector.Entry{
			Id:        result.ID,
			UserId:    userId,
			Text:      result.Content,
			Metadata:  meta,
			Score:     score,
			CreatedAt: createdAt,
		})
	}

	return entries, nil
}

func (s *chromemStorer) Delete(ctx context.Context, userId string, id string) (bool, error) {
	col, err := s.collection(userId)
	if err != nil {
		return false, err
	}

	before := col.Count()

	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return false, fmt.Errorf("chromem delete: %w", err)
	}

	return col.Count() < before, nil
}

func (s *chromemStorer) DeleteUser(ctx context.Context, userId string) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	col, exists := s.collections[userId]
	if !exists {
		return 0, nil
	}

	count := col.Count()

	if err := s.db.DeleteCollection(s.collectionName(userId)); err != nil {
		return 0, fmt.Errorf("chromem delete collection: %w", err)
	}

	delete(s.collections, userId)

	return count, nil
}

func (s *chromemStorer) collection(userId string) (*chromem.Collection, error) {
	s.mtx.RLock()
	col, exists := s.collections[userId]
	s.mtx.RUnlock()

	if exists {
		return col, nil
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if col, exists := s.collections[userId]; exists {
		return col, nil
	}

	// embeddings are supplied by the caller, so no embedding func; default
	// distance is cosine
	col, err := s.db.GetOrCreateCollection(s.collectionName(userId), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[userId] = col

	return col, nil
}

func (s *chromemStorer) collectionName(userId string) string {
	return s.options.Collection + "_" + userId
}

func NewStorer(opts ...vector.Option) vector.Storer {
	options := vector.NewOptions(opts...)

	return &chromemStorer{
		options:     options,
		db:          chromem.NewDB(),
		collections: map[string]*chromem.Collection{},
	}
}
