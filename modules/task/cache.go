package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	"github.com/redis/go-redis/v9"
)

// CacheStats tracks cache statistics.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// TaskCache is a Redis cache-aside layer for single-task reads.
// A nil *TaskCache is a valid, disabled cache.
type TaskCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  CacheStats
}

// NewTaskCache creates a cache over client.
func NewTaskCache(client *redis.Client, prefix string, ttl time.Duration) *TaskCache {
	return &TaskCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get loads a cached task. The boolean reports a hit.
func (c *TaskCache) Get(ctx context.Context, id string) (*domain.Task, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddUint64(&c.stats.Misses, 1)
			return nil, false, nil
		}
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var t domain.Task
	if err := json.Unmarshal(data, &t); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	atomic.AddUint64(&c.stats.Hits, 1)
	return &t, true, nil
}

// Set stores t with the default TTL.
func (c *TaskCache) Set(ctx context.Context, t *domain.Task) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(t)
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+t.ID, data, c.ttl).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache set error: %w", err)
	}

	atomic.AddUint64(&c.stats.Sets, 1)
	return nil
}

// Delete evicts the given task IDs.
func (c *TaskCache) Delete(ctx context.Context, ids ...string) error {
	if c == nil || len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.prefix + id
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache delete error: %w", err)
	}

	atomic.AddUint64(&c.stats.Deletes, uint64(len(ids)))
	return nil
}

// Ping checks the Redis connection.
func (c *TaskCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Stats returns a snapshot of the counters.
func (c *TaskCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{
		Hits:    atomic.LoadUint64(&c.stats.Hits),
		Misses:  atomic.LoadUint64(&c.stats.Misses),
		Sets:    atomic.LoadUint64(&c.stats.Sets),
		Deletes: atomic.LoadUint64(&c.stats.Deletes),
		Errors:  atomic.LoadUint64(&c.stats.Errors),
	}
}
