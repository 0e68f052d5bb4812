package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/mnemo/memory/providers/cacher"
)

func newTestCacher(t *testing.T, opts ...cacher.Option) cacher.Cacher {
	s := miniredis.RunT(t)
	opts = append(opts, cacher.WithLocation(s.Addr()))
	c, err := NewCacher(opts...)
	require.NoError(t, err)
	return c
}

func TestRedisCacher_TrimsToWindow(t *testing.T) {
	c := newTestCacher(t, cacher.WithMaxMessages(2))
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, "hi", nil))
	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleAssistant, "hello", nil))
	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, "bye", nil))

	msgs, err := c.History(ctx, "u1", "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].Content)
	require.Equal(t, "bye", msgs[1].Content)
}

func TestRedisCacher_HistoryLimit(t *testing.T) {
	c := newTestCacher(t, cacher.WithMaxMessages(10))
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, content, nil))
	}

	msgs, err := c.History(ctx, "u1", "s1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "c", msgs[0].Content)
	require.Equal(t, "d", msgs[1].Content)
}

func TestRedisCacher_SessionsAreIsolated(t *testing.T) {
	c := newTestCacher(t)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, "one", nil))
	require.NoError(t, c.Append(ctx, "u1", "s2", cacher.RoleUser, "two", nil))
	require.NoError(t, c.Append(ctx, "u2", "s1", cacher.RoleUser, "three", nil))

	msgs, err := c.History(ctx, "u1", "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "one", msgs[0].Content)

	count, err := c.SessionCount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRedisCacher_Clear(t *testing.T) {
	c := newTestCacher(t)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, "hi", nil))
	require.NoError(t, c.Clear(ctx, "u1", "s1"))

	msgs, err := c.History(ctx, "u1", "s1", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestRedisCacher_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	c, err := NewCacher(
		cacher.WithLocation(s.Addr()),
		cacher.WithTTL(time.Minute),
	)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, "hi", nil))

	s.FastForward(2 * time.Minute)

	msgs, err := c.History(ctx, "u1", "s1", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestRedisCacher_RecentContextBudget(t *testing.T) {
	c := newTestCacher(t, cacher.WithMaxMessages(10))
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleUser, "this message is too old to fit in the budget", nil))
	require.NoError(t, c.Append(ctx, "u1", "s1", cacher.RoleAssistant, "short", nil))

	// 2 tokens * 4 chars: only the most recent message fits
	result, err := c.RecentContext(ctx, "u1", "s1", 2)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "short", result[0].Content)
}

func TestNewCacher_UnreachableServer(t *testing.T) {
	_, err := NewCacher(cacher.WithLocation("127.0.0.1:1"))
	require.Error(t, err)
}
