package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends result records to a per-exercise Redis list and keeps
// a running best score per level. Failures are returned, never panicked;
// the caller logs and carries on.
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink connects a sink to the given Redis address.
func NewRedisSink(addr string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Ping verifies connectivity; call once at startup.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) Save(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling result record: %w", err)
	}

	listKey := fmt.Sprintf("results:%s", rec.Exercise)
	if err := s.client.RPush(ctx, listKey, payload).Err(); err != nil {
		return fmt.Errorf("appending result record: %w", err)
	}

	// Best score per level, monotonic.
	bestKey := fmt.Sprintf("results:%s:best:%d", rec.Exercise, rec.Level)
	current, err := s.client.Get(ctx, bestKey).Float64()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("reading best score: %w", err)
	}
	if err == redis.Nil || rec.Score > current {
		if err := s.client.Set(ctx, bestKey, rec.Score, 0).Err(); err != nil {
			return fmt.Errorf("updating best score: %w", err)
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
