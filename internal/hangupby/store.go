package hangupby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store maps a task sid to its last known attribution.
//
// Contract relied on by the engine: worker-action hooks (see Recorder) write the
// store before the wrap-up event for the same task is evaluated. An empty entry at
// wrap-up therefore means no worker action ended the call.
//
// Entries are only ever overwritten, never removed.
type Store interface {
	// Get returns ("", false, nil) when nothing is recorded.
	Get(ctx context.Context, sid string) (Value, bool, error)
	Set(ctx context.Context, sid string, v Value) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Value
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Value{}}
}

func (s *MemoryStore) Get(_ context.Context, sid string) (Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[sid]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sid string, v Value) error {
	if sid == "" {
		return ErrInvalidTask
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sid] = v
	return nil
}

const storeKeyPrefix = "hangupby:task:"

// RedisStore shares attributions between API replicas.
// Keys expire after TTL; an attribution is meaningless once the task is gone.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sid string) (Value, bool, error) {
	raw, err := s.rdb.Get(ctx, storeKeyPrefix+sid).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hangupby: redis get: %w", err)
	}
	v, err := ParseValue(raw)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sid string, v Value) error {
	if sid == "" {
		return ErrInvalidTask
	}
	if err := s.rdb.Set(ctx, storeKeyPrefix+sid, string(v), s.ttl).Err(); err != nil {
		return fmt.Errorf("hangupby: redis set: %w", err)
	}
	return nil
}
