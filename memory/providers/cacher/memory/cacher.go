package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/w-h-a/mnemo/memory/providers/cacher"
)

type window struct {
	mtx       sync.Mutex
	messages  []cacher.Message
	expiresAt time.Time
}

type memoryCacher struct {
	options cacher.Options
	windows map[string]*window
	mtx     sync.RWMutex
}

func (c *memoryCacher) Append(ctx context.Context, userId string, sessionId string, role string, content string, metadata map[string]any) error {
	w := c.window(userId, sessionId)

	w.mtx.Lock()
	defer w.mtx.Unlock()

	now := time.Now().UTC()

	if !w.expiresAt.IsZero() && now.After(w.expiresAt) {
		w.messages = nil
	}

	w.messages = append(w.messages, cacher.Message{
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
	})

	if len(w.messages) > c.options.MaxMessages {
		w.messages = w.messages[len(w.messages)-c.options.MaxMessages:]
	}

	w.expiresAt = now.Add(c.options.TTL)

	return nil
}

func (c *memoryCacher) History(ctx context.Context, userId string, sessionId string, limit int) ([]cacher.Message, error) {
	c.mtx.RLock()
	w, exists := c.windows[c.key(userId, sessionId)]
	c.mtx.RUnlock()

	if !exists {
		return []cacher.Message{}, nil
	}

	w.mtx.Lock()
	defer w.mtx.Unlock()

	if !w.expiresAt.IsZero() && time.Now().UTC().After(w.expiresAt) {
		w.messages = nil
		return []cacher.Message{}, nil
	}

	msgs := w.messages
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}

	copied := make([]cacher.Message, len(msgs))
	copy(copied, msgs)

	return copied, nil
}

func (c *memoryCacher) RecentContext(ctx context.Context, userId string, sessionId string, maxTokens int) ([]cacher.ContextMessage, error) {
	msgs, err := c.History(ctx, userId, sessionId, 0)
	if err != nil {
		return nil, err
	}

	return cacher.TrimToBudget(msgs, maxTokens), nil
}

func (c *memoryCacher) Clear(ctx context.Context, userId string, sessionId string) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	delete(c.windows, c.key(userId, sessionId))

	return nil
}

func (c *memoryCacher) SessionCount(ctx context.Context, userId string) (int, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	now := time.Now().UTC()
	prefix := userId + ":"

	count := 0
	for key, w := range c.windows {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		w.mtx.Lock()
		live := len(w.messages) > 0 && (w.expiresAt.IsZero() || now.Before(w.expiresAt))
		w.mtx.Unlock()
		if live {
			count++
		}
	}

	return count, nil
}

// window returns the window for the key, creating it if needed. The map
// lock is held only for lookup/insert so sessions never contend with each
// other on message writes.
func (c *memoryCacher) window(userId string, sessionId string) *window {
	key := c.key(userId, sessionId)

	c.mtx.RLock()
	w, exists := c.windows[key]
	c.mtx.RUnlock()

	if exists {
		return w
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if w, exists := c.windows[key]; exists {
		return w
	}

	w = &window{}
	c.windows[key] = w

	return w
}

func (c *memoryCacher) key(userId string, sessionId string) string {
	return userId + ":" + sessionId
}

func NewCacher(opts ...cacher.Option) cacher.Cacher {
	options := cacher.NewOptions(opts...)

	return &memoryCacher{
		options: options,
		windows: map[string]*window{},
	}
}
