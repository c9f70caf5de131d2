package cuts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache keeps cut listings in Redis for a short TTL. Writes
// invalidate the order's entry, so the cache only ever serves results
// that were current after the last committed cut.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache constructs ListCache.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ListCache{client: client, ttl: ttl}
}

func listKey(orderID int64) string {
	return fmt.Sprintf("cuts:order:%d", orderID)
}

// Get returns the cached listing, if present.
func (c *ListCache) Get(ctx context.Context, orderID int64) ([]CutResult, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, listKey(orderID)).Bytes()
	if err != nil {
		return nil, false
	}
	var results []CutResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false
	}
	return results, true
}

// Set stores the listing. Failures are ignored: the cache is advisory.
func (c *ListCache) Set(ctx context.Context, orderID int64, results []CutResult) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, listKey(orderID), data, c.ttl).Err()
}

// Invalidate drops the order's cached listing.
func (c *ListCache) Invalidate(ctx context.Context, orderID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, listKey(orderID)).Err()
}
