package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/w-h-a/mnemo/memory/providers/cacher"
)

const keyPrefix = "mnemo:window:"

type redisCacher struct {
	options cacher.Options
	client  redis.UniversalClient
}

func (c *redisCacher) Append(ctx context.Context, userId string, sessionId string, role string, content string, metadata map[string]any) error {
	msg := cacher.Message{
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := c.key(userId, sessionId)

	// Append, trim to the window bound, and refresh the TTL on every write.
	// Backend failures are logged, not surfaced: short-term memory is
	// best-effort by contract.
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-c.options.MaxMessages), -1)
	pipe.Expire(ctx, key, c.options.TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "redis append failed", "user", userId, "session", sessionId, "error", err)
	}

	return nil
}

func (c *redisCacher) History(ctx context.Context, userId string, sessionId string, limit int) ([]cacher.Message, error) {
	key := c.key(userId, sessionId)

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := c.client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range: %w", err)
	}

	msgs := make([]cacher.Message, 0, len(raw))
	for _, item := range raw {
		var msg cacher.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			slog.WarnContext(ctx, "skipping undecodable message", "user", userId, "session", sessionId, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func (c *redisCacher) RecentContext(ctx context.Context, userId string, sessionId string, maxTokens int) ([]cacher.ContextMessage, error) {
	msgs, err := c.History(ctx, userId, sessionId, 0)
	if err != nil {
		return nil, err
	}

	return cacher.TrimToBudget(msgs, maxTokens), nil
}

func (c *redisCacher) Clear(ctx context.Context, userId string, sessionId string) error {
	if err := c.client.Del(ctx, c.key(userId, sessionId)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *redisCacher) SessionCount(ctx context.Context, userId string) (int, error) {
	pattern := keyPrefix + userId + ":*"

	count := 0
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}

	return count, nil
}

func (c *redisCacher) key(userId string, sessionId string) string {
	return keyPrefix + userId + ":" + sessionId
}

// NewCacher connects to redis at the configured location. An unreachable
// server is reported here, once, so the caller can select the in-process
// fallback for the lifetime of the instance.
func NewCacher(opts ...cacher.Option) (cacher.Cacher, error) {
	options := cacher.NewOptions(opts...)

	var client redis.UniversalClient

	if strings.Contains(options.Location, "://") {
		parsed, err := redis.ParseURL(options.Location)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(parsed)
	} else {
		client = redis.NewClient(&redis.Options{Addr: options.Location})
	}

	pingCtx, cancel := context.WithTimeout(options.Context, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &redisCacher{
		options: options,
		client:  client,
	}, nil
}
