package hybrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/w-h-a/mnemo/memory"
	"github.com/w-h-a/mnemo/memory/providers/cacher"
	"github.com/w-h-a/mnemo/memory/providers/facts"
	"github.com/w-h-a/mnemo/memory/providers/vector"
)

// hybridMemory composes whichever tiers were configured. The conversation
// window is required; facts and semantic memory degrade to empty sections
// when absent or failing.
type hybridMemory struct {
	options memory.Options
}

func (m *hybridMemory) StoreMessage(ctx context.Context, userId string, sessionId string, role string, content string, metadata map[string]any) error {
	return m.options.Cacher.Append(ctx, userId, sessionId, role, content, metadata)
}

func (m *hybridMemory) ConversationContext(ctx context.Context, userId string, sessionId string, maxTokens int) ([]cacher.ContextMessage, error) {
	return m.options.Cacher.RecentContext(ctx, userId, sessionId, maxTokens)
}

func (m *hybridMemory) StoreFact(ctx context.Context, userId string, key string, value string, category string, confidence int, source facts.Source, metadata map[string]any) (string, error) {
	if m.options.Facts == nil {
		return "", errors.New("no fact store is configured")
	}

	return m.options.Facts.Store(ctx, userId, key, value, category, confidence, source, metadata)
}

func (m *hybridMemory) Facts(ctx context.Context, userId string, category string) ([]facts.Fact, error) {
	if m.options.Facts == nil {
		return nil, errors.New("no fact store is configured")
	}

	if len(category) > 0 {
		return m.options.Facts.GetByCategory(ctx, userId, category)
	}

	return m.options.Facts.GetAll(ctx, userId)
}

func (m *hybridMemory) SemanticSearch(ctx context.Context, userId string, embedding []float32, limit int, threshold float64) ([]vector.Entry, error) {
	if m.options.Vector == nil {
		return nil, errors.New("no vector store is configured")
	}

	if len(embedding) == 0 {
		return nil, errors.New("semantic search requires a query embedding")
	}

	return m.options.Vector.Search(ctx, userId, embedding, limit, threshold)
}

// FullContext assembles all requested tiers for one turn. Tier fetches are
// independent: a failing tier is logged and its section stays empty rather
// than failing the whole call.
func (m *hybridMemory) FullContext(ctx context.Context, userId string, sessionId string, queryEmbedding []float32, opts ...memory.FullContextOption) (*memory.FullContext, error) {
	options := memory.NewFullContextOptions(opts...)

	full := &memory.FullContext{
		Conversation:     []cacher.ContextMessage{},
		Facts:            []facts.Fact{},
		SemanticMemories: []vector.Entry{},
	}

	conversation, err := m.options.Cacher.RecentContext(ctx, userId, sessionId, options.MaxTokens)
	if err != nil {
		m.logTierFailure(ctx, "conversation", userId, sessionId, err)
	} else {
		full.Conversation = conversation
	}

	if options.IncludeFacts && m.options.Facts != nil {
		userFacts, err := m.options.Facts.GetAll(ctx, userId)
		if err != nil {
			m.logTierFailure(ctx, "facts", userId, sessionId, err)
		} else {
			full.Facts = userFacts
		}
	}

	if options.IncludeSemantic && len(queryEmbedding) > 0 && m.options.Vector != nil {
		entries, err := m.options.Vector.Search(ctx, userId, queryEmbedding, options.SemanticLimit, options.SemanticThreshold)
		if err != nil {
			m.logTierFailure(ctx, "semantic", userId, sessionId, err)
		} else if entries != nil {
			full.SemanticMemories = entries
		}
	}

	return full, nil
}

// SummarizeSession reads the full window, asks the generator for a
// line-tagged summary, and persists it. An empty window is a no-op, not an
// error. The window itself is left alone; callers clear it explicitly.
func (m *hybridMemory) SummarizeSession(ctx context.Context, userId string, sessionId string) (*facts.Summary, error) {
	history, err := m.options.Cacher.History(ctx, userId, sessionId, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if len(history) == 0 {
		return &facts.Summary{}, nil
	}

	if m.options.Generator == nil {
		return nil, errors.New("no generator is configured")
	}

	var transcript strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}

	prompt := fmt.Sprintf(
		"Summarize the conversation below. Respond with exactly these lines:\n"+
			"SUMMARY: <one or two sentences>\n"+
			"TOPICS: <comma-separated topics>\n"+
			"ACTION ITEMS: <semicolon-separated action items, or none>\n"+
			"SENTIMENT: <positive, negative, neutral, or mixed>\n\n"+
			"Conversation:\n%s",
		transcript.String(),
	)

	completion, err := m.options.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	summary := parseSummary(completion)
	summary.UserId = userId
	summary.SessionId = sessionId
	summary.MessageCount = len(history)
	summary.StartedAt = history[0].CreatedAt
	summary.EndedAt = history[len(history)-1].CreatedAt
	summary.CreatedAt = time.Now().UTC()

	if m.options.Summaries != nil {
		id, err := m.options.Summaries.StoreSummary(ctx, *summary)
		if err != nil {
			return nil, fmt.Errorf("failed to persist summary: %w", err)
		}
		summary.Id = id
	}

	return summary, nil
}

func (m *hybridMemory) ClearConversation(ctx context.Context, userId string, sessionId string) error {
	return m.options.Cacher.Clear(ctx, userId, sessionId)
}

// DeleteUserData erases the user's semantic entries only. Facts stay
// soft-deletable and the conversation window stays clearable on their own
// paths, so audit trails survive vector erasure.
func (m *hybridMemory) DeleteUserData(ctx context.Context, userId string) (int, error) {
	if m.options.Vector == nil {
		return 0, nil
	}

	return m.options.Vector.DeleteUser(ctx, userId)
}

func (m *hybridMemory) logTierFailure(ctx context.Context, tier string, userId string, sessionId string, err error) {
	slog.ErrorContext(
		ctx,
		"memory tier failed",
		"tier", tier,
		"user_id", userId,
		"session_id", sessionId,
		"error", err,
	)
}

func parseSummary(completion string) *facts.Summary {
	summary := &facts.Summary{
		Sentiment: "neutral",
	}

	for _, line := range strings.Split(completion, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "SUMMARY:"):
			summary.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "TOPICS:"):
			summary.Topics = splitList(strings.TrimPrefix(line, "TOPICS:"), ",")
		case strings.HasPrefix(line, "ACTION ITEMS:"):
			summary.ActionItems = splitList(strings.TrimPrefix(line, "ACTION ITEMS:"), ";")
		case strings.HasPrefix(line, "SENTIMENT:"):
			if sentiment := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "SENTIMENT:"))); len(sentiment) > 0 {
				summary.Sentiment = sentiment
			}
		}
	}

	if len(summary.Summary) == 0 {
		summary.Summary = strings.TrimSpace(completion)
	}

	return summary
}

func splitList(raw string, sep string) []string {
	var items []string

	for _, item := range strings.Split(raw, sep) {
		item = strings.TrimSpace(item)
		if len(item) == 0 || strings.EqualFold(item, "none") {
			continue
		}
		items = append(items, item)
	}

	return items
}

func NewMemory(opts ...memory.Option) memory.Memory {
	options := memory.NewOptions(opts...)

	if options.Cacher == nil {
		panic("a conversation cacher is required")
	}

	return &hybridMemory{
		options: options,
	}
}
