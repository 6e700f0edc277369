package hangupby

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper guards against a wrap-up event being evaluated twice for one task.
// Claim returns true exactly once per key until the claim expires.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	// Held reports whether key is claimed and unexpired.
	Held(ctx context.Context, key string) (bool, error)
}

type MemoryDeduper struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryDeduper{ttl: ttl, claims: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDeduper) Claim(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.claims[key] = now.Add(d.ttl)

	// Opportunistic sweep so long-running processes do not grow without bound.
	for k, exp := range d.claims {
		if !now.Before(exp) {
			delete(d.claims, k)
		}
	}
	return true, nil
}

func (d *MemoryDeduper) Held(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.claims[key]
	return ok && d.now().Before(exp), nil
}

const dedupKeyPrefix = "hangupby:wrapup:"

type RedisDeduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, dedupKeyPrefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("hangupby: redis claim: %w", err)
	}
	return ok, nil
}

func (d *RedisDeduper) Held(ctx context.Context, key string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("hangupby: redis claim lookup: %w", err)
	}
	return n > 0, nil
}
