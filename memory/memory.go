package memory

import (
	"context"

	"github.com/w-h-a/mnemo/memory/providers/cacher"
	"github.com/w-h-a/mnemo/memory/providers/facts"
	"github.com/w-h-a/mnemo/memory/providers/vector"
)

// Memory composes the short-term conversation window, the durable fact
// store, and semantic memory behind one context-assembly API. It is a
// stateless composition layer: each tier owns its own data.
type Memory interface {
	StoreMessage(ctx context.Context, userId string, sessionId string, role string, content string, metadata map[string]any) error
	ConversationContext(ctx context.Context, userId string, sessionId string, maxTokens int) ([]cacher.ContextMessage, error)
	StoreFact(ctx context.Context, userId string, key string, value string, category string, confidence int, source facts.Source, metadata map[string]any) (string, error)
	Facts(ctx context.Context, userId string, category string) ([]facts.Fact, error)
	SemanticSearch(ctx context.Context, userId string, embedding []float32, limit int, threshold float64) ([]vector.Entry, error)
	FullContext(ctx context.Context, userId string, sessionId string, queryEmbedding []float32, opts ...FullContextOption) (*FullContext, error)
	SummarizeSession(ctx context.Context, userId string, sessionId string) (*facts.Summary, error)
	ClearConversation(ctx context.Context, userId string, sessionId string) error
	DeleteUserData(ctx context.Context, userId string) (int, error)
}

// FullContext is everything assembled for one conversation turn. A tier
// that was not requested, or that failed, leaves its section empty.
type FullContext struct {
	Conversation     []cacher.ContextMessage
	Facts            []facts.Fact
	SemanticMemories []vector.Entry
}
