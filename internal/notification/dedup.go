package notification

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers correlation ids the engine has fully processed so a
// redelivered message is not turned into a second notification. Marking
// happens only after the handler succeeds; a crash mid-handler leaves the
// id unmarked and the redelivery is processed again, which is the
// at-least-once trade-off this service accepts.
type Dedup interface {
	Seen(ctx context.Context, correlationID string) (bool, error)
	Mark(ctx context.Context, correlationID string) error
}

// RedisDedup stores processed ids in Redis with a TTL.
type RedisDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedup builds a dedup store. A ttl of zero defaults to 24h.
func NewRedisDedup(client *redis.Client, ttl time.Duration) *RedisDedup {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDedup{client: client, ttl: ttl}
}

func (d *RedisDedup) Seen(ctx context.Context, correlationID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(correlationID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDedup) Mark(ctx context.Context, correlationID string) error {
	return d.client.Set(ctx, dedupKey(correlationID), "1", d.ttl).Err()
}

func dedupKey(correlationID string) string {
	return "notification:dedup:" + correlationID
}

// MemoryDedup is an in-process Dedup used by tests and local runs.
type MemoryDedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDedup builds an empty in-memory dedup store.
func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{seen: make(map[string]struct{})}
}

func (d *MemoryDedup) Seen(ctx context.Context, correlationID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[correlationID]
	return ok, nil
}

func (d *MemoryDedup) Mark(ctx context.Context, correlationID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[correlationID] = struct{}{}
	return nil
}
