//go:build e2e

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	opts, err := redis.ParseURL("redis://" + endpoint)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisMirrorRoundTrip(t *testing.T) {
	client := startRedis(t)
	mirror := NewRedisMirror(client)
	ctx := context.Background()

	empty, err := mirror.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	fetched := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, mirror.Save(ctx, &Snapshot{Levels: sampleLevels(), FetchedAt: fetched}))

	loaded, err := mirror.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, fetched.Equal(loaded.FetchedAt))
	assert.Len(t, loaded.Programs(), 4)

	ttl, err := client.TTL(ctx, mirrorKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 23*time.Hour)
}
