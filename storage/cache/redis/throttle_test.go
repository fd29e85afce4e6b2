package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixacademy/resultsportal/core"
)

func TestThrottle(t *testing.T) {
	addr := os.Getenv("PORTAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PORTAL_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := Open(ctx, core.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer rdb.Close()

	th := NewThrottle(rdb, time.Minute)
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	defer th.Reset(ctx, key)

	n, err := th.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 1; i <= 3; i++ {
		n, err = th.Hit(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	ttl, err := rdb.TTL(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	require.NoError(t, th.Reset(ctx, key))
	n, err = th.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
