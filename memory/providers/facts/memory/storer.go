package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/mnemo/memory/providers/facts"
)

type memoryStorer struct {
	options   facts.Options
	facts     map[string][]facts.Fact
	summaries map[string][]facts.Summary
	mtx       sync.RWMutex
}

func (s *memoryStorer) Store(ctx context.Context, userId string, key string, value string, category string, confidence int, source facts.Source, metadata map[string]any) (string, error) {
	if len(category) == 0 {
		category = "general"
	}

	confidence = facts.ClampConfidence(confidence)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := time.Now().UTC()

	records := s.facts[userId]
	for i := range records {
		rec := &records[i]
		if rec.Active && rec.Key == key && rec.Category == category {
			rec.Value = value
			rec.Confidence = confidence
			rec.Source = source
			rec.Metadata = copyMeta(metadata)
			rec.UpdatedAt = now
			return rec.Id, nil
		}
	}

	fact := facts.Fact{
		Id:         uuid.New().String(),
		UserId:     userId,
		Key:        key,
		Value:      value,
		Category:   category,
		Confidence: confidence,
		Source:     source,
		Metadata:   copyMeta(metadata),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.facts[userId] = append(records, fact)

	return fact.Id, nil
}

func (s *memoryStorer) Get(ctx context.Context, userId string, key string, category string) (*facts.Fact, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var found *facts.Fact

	for _, rec := range s.facts[userId] {
		if !rec.Active || rec.Key != key {
			continue
		}
		if len(category) > 0 && rec.Category != category {
			continue
		}
		if found == nil || rec.UpdatedAt.After(found.UpdatedAt) {
			cpy := rec
			found = &cpy
		}
	}

	return found, nil
}

func (s *memoryStorer) GetByCategory(ctx context.Context, userId string, category string) ([]facts.Fact, error) {
	results := s.collect(userId, func(f facts.Fact) bool {
		return f.Category == category
	})

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return results, nil
}

func (s *memoryStorer) GetAll(ctx context.Context, userId string) ([]facts.Fact, error) {
	results := s.collect(userId, func(facts.Fact) bool { return true })

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Category != results[j].Category {
			return results[i].Category < results[j].Category
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return results, nil
}

func (s *memoryStorer) Search(ctx context.Context, userId string, query string, category string) ([]facts.Fact, error) {
	needle := strings.ToLower(query)

	results := s.collect(userId, func(f facts.Fact) bool {
		if len(category) > 0 && f.Category != category {
			return false
		}
		return strings.Contains(strings.ToLower(f.Key), needle) ||
			strings.Contains(strings.ToLower(f.Value), needle)
	})

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})

	return results, nil
}

func (s *memoryStorer) Delete(ctx context.Context, userId string, key string, category string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	affected := false

	records := s.facts[userId]
	for i := range records {
		rec := &records[i]
		if !rec.Active || rec.Key != key {
			continue
		}
		if len(category) > 0 && rec.Category != category {
			continue
		}
		rec.Active = false
		rec.UpdatedAt = time.Now().UTC()
		affected = true
	}

	return affected, nil
}

func (s *memoryStorer) StoreSummary(ctx context.Context, summary facts.Summary) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if len(summary.Id) == 0 {
		summary.Id = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	s.summaries[summary.UserId] = append(s.summaries[summary.UserId], summary)

	return summary.Id, nil
}

func (s *memoryStorer) ListSummaries(ctx context.Context, userId string) ([]facts.Summary, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	copied := make([]facts.Summary, len(s.summaries[userId]))
	copy(copied, s.summaries[userId])

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].CreatedAt.After(copied[j].CreatedAt)
	})

	return copied, nil
}

func (s *memoryStorer) collect(userId string, match func(facts.Fact) bool) []facts.Fact {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var results []facts.Fact
	for _, rec := range s.facts[userId] {
		if rec.Active && match(rec) {
			results = append(results, rec)
		}
	}

	return results
}

func copyMeta(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	cpy := make(map[string]any, len(metadata))
	maps.Copy(cpy, metadata)
	return cpy
}

func NewStorer(opts ...facts.Option) *memoryStorer {
	options := facts.NewOptions(opts...)

	return &memoryStorer{
		options:   options,
		facts:     map[string][]facts.Fact{},
		summaries: map[string][]facts.Summary{},
	}
}
