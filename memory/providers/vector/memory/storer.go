package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/mnemo/memory/providers/vector"
)

type stored struct {
	entry     vector.Entry
	embedding []float32
}

type shard struct {
	mtx     sync.RWMutex
	entries []stored
}

// memoryStorer is the in-process fallback. Search is a linear cosine scan
// over the user's entries, so it is only suitable at small scale.
type memoryStorer struct {
	options vector.Options
	shards  map[string]*shard
	mtx     sync.RWMutex
}

func (s *memoryStorer) Init(ctx context.Context) error {
	return nil
}

func (s *memoryStorer) Store(ctx context.Context, userId string, text string, embedding []float32, metadata map[string]any) (string, error) {
	sh := s.shard(userId)

	id := uuid.New().String()

	cpy := make([]float32, len(embedding))
	copy(cpy, embedding)

	var meta map[string]any
	if metadata != nil {
		meta = make(map[string]any, len(metadata))
		maps.Copy(meta, metadata)
	}

	sh.mtx.Lock()
	defer sh.mtx.Unlock()

	sh.entries = append(sh.entries, stored{
		entry: vector.Entry{
			Id:        id,
			UserId:    userId,
			Text:      text,
			Metadata:  meta,
			CreatedAt: time.Now().UTC(),
		},
		embedding: cpy,
	})

	return id, nil
}

func (s *memoryStorer) Search(ctx context.Context, userId string, embedding []float32, limit int, threshold float64) ([]vector.Entry, error) {
	if limit < 1 {
		return nil, nil
	}

	s.mtx.RLock()
	sh, exists := s.shards[userId]
	s.mtx.RUnlock()

	if !exists {
		return nil, nil
	}

	sh.mtx.RLock()
	defer sh.mtx.RUnlock()

	candidates := make([]vector.Entry, 0, len(sh.entries))

	for _, rec := range sh.entries {
		score := vector.CosineSimilarity(embedding, rec.embedding)
		if score < threshold {
			continue
		}
		entry := rec.entry
		entry.Score = score
		candidates = append(candidates, entry)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *memoryStorer) Delete(ctx context.Context, userId string, id string) (bool, error) {
	s.mtx.RLock()
	sh, exists := s.shards[userId]
	s.mtx.RUnlock()

	if !exists {
		return false, nil
	}

	sh.mtx.Lock()
	defer sh.mtx.Unlock()

	for i, rec := range sh.entries {
		if rec.entry.Id == id {
			sh.entries = append(sh.entries[:i], sh.entries[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

func (s *memoryStorer) DeleteUser(ctx context.Context, userId string) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sh, exists := s.shards[userId]
	if !exists {
		return 0, nil
	}

	sh.mtx.Lock()
	count := len(sh.entries)
	sh.entries = nil
	sh.mtx.Unlock()

	delete(s.shards, userId)

	return count, nil
}

func (s *memoryStorer) shard(userId string) *shard {
	s.mtx.RLock()
	sh, exists := s.shards[userId]
	s.mtx.RUnlock()

	if exists {
		return sh
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if sh, exists := s.shards[userId]; exists {
		return sh
	}

	sh = &shard{}
	s.shards[userId] = sh

	return sh
}

func NewStorer(opts ...vector.Option) vector.Storer {
	options := vector.NewOptions(opts...)

	return &memoryStorer{
		options: options,
		shards:  map[string]*shard{},
	}
}
