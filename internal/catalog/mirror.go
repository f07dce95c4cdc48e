package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	mirrorKey = "assistant:catalog:snapshot"
	mirrorTTL = 24 * time.Hour
)

// RedisMirror stores the last good snapshot in Redis so a restarted process
// can answer while the catalog API is down.
type RedisMirror struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisMirror wraps an existing client.
func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client, key: mirrorKey, ttl: mirrorTTL}
}

func (m *RedisMirror) Save(ctx context.Context, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return m.client.Set(ctx, m.key, data, m.ttl).Err()
}

func (m *RedisMirror) Load(ctx context.Context) (*Snapshot, error) {
	data, err := m.client.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}
