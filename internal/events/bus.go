// Package events publishes conversation events on a Redis stream so other
// services can follow what the assistant does.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is the Redis stream events are appended to.
const Stream = "assistant:events"

const maxStreamLen = 10000

// Event types.
const (
	TypeMessageRouted = "message.routed"
	TypeMemoryCleared = "memory.cleared"
)

// Event is one conversation event.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Tenant         string    `json:"tenant,omitempty"`
	Category       string    `json:"category,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, *Event) error { return nil }

// Bus is a Redis Streams backed Publisher.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewBus wraps an existing Redis client.
func NewBus(rdb *redis.Client, logger *zap.Logger) *Bus {
	return &Bus{rdb: rdb, logger: logger}
}

// Dial connects to redisURL and returns a Bus.
func Dial(ctx context.Context, redisURL string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewBus(rdb, logger), nil
}

// Client exposes the underlying Redis client so other components can share
// the connection.
func (b *Bus) Client() *redis.Client { return b.rdb }

// Publish appends ev to the stream, filling in ID and Timestamp if unset.
func (b *Bus) Publish(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", Stream, err)
	}

	b.logger.Debug("published event",
		zap.String("type", ev.Type),
		zap.String("conversation", ev.ConversationID))
	return nil
}

// Subscribe tails the stream from now on. The channel is closed when ctx
// is cancelled.
func (b *Bus) Subscribe(ctx context.Context) <-chan *Event {
	ch := make(chan *Event, 16)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{Stream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				if !errors.Is(err, redis.Nil) {
					b.logger.Debug("stream read failed", zap.Error(err))
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev Event
					if json.Unmarshal([]byte(data), &ev) != nil {
						continue
					}
					select {
					case ch <- &ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
