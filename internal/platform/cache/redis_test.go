package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Total string `json:"total"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "treasury", time.Minute)
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Total: "100.00"}, nil
	}

	key, err := c.BuildKey(ctx, "summary", "global")
	require.NoError(t, err)
	require.Equal(t, "treasury:summary:global:1", key)

	var first, second payload
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, "100.00", second.Total)

	require.NoError(t, c.Bump(ctx))
	bumped, err := c.BuildKey(ctx, "summary", "global")
	require.NoError(t, err)
	require.Equal(t, "treasury:summary:global:2", bumped)

	var third payload
	require.NoError(t, c.FetchJSON(ctx, bumped, &third, loader))
	require.Equal(t, 2, calls)
}

func TestNilCacheCallsLoader(t *testing.T) {
	var c *Cache
	var out payload
	err := c.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return payload{Total: "5"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "5", out.Total)
	require.NoError(t, c.Bump(context.Background()))
}
