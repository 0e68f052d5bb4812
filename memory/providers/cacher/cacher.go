package cacher

import "context"

// Cacher is the windowed short-term conversation cache. Implementations keep
// an ordered, bounded, TTL-limited message list per (user, session) and must
// agree on trim and ordering semantics so backends are interchangeable.
type Cacher interface {
	Append(ctx context.Context, userId string, sessionId string, role string, content string, metadata map[string]any) error
	History(ctx context.Context, userId string, sessionId string, limit int) ([]Message, error)
	RecentContext(ctx context.Context, userId string, sessionId string, maxTokens int) ([]ContextMessage, error)
	Clear(ctx context.Context, userId string, sessionId string) error
	SessionCount(ctx context.Context, userId string) (int, error)
}
