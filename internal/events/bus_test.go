//go:build e2e

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func TestBusPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	bus, err := Dial(ctx, "redis://"+endpoint, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := bus.Subscribe(subCtx)
	// let XREAD with "$" start before publishing
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, bus.Publish(ctx, &Event{Type: TypeMessageRouted, ConversationID: "c1", Tenant: "ube", Category: "ventas"}))

	select {
	case ev := <-ch:
		assert.Equal(t, TypeMessageRouted, ev.Type)
		assert.Equal(t, "c1", ev.ConversationID)
		assert.Equal(t, "ventas", ev.Category)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}

	n, err := bus.Client().XLen(ctx, Stream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
