package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"example.com/wearsync/internal/transfer"
)

const (
	liveCacheKey = "wearsync:live:latest"
	liveCacheTTL = 10 * time.Second
)

// LiveCache keeps the most recent live sample in Redis for UI reads. The TTL
// makes staleness visible: once the wearable stops sending, the key expires.
type LiveCache struct {
	client *redis.Client
}

// NewLiveCache constructs a LiveCache on the given client.
func NewLiveCache(client *redis.Client) *LiveCache {
	return &LiveCache{client: client}
}

// SetLatest overwrites the cached sample.
func (c *LiveCache) SetLatest(ctx context.Context, sample transfer.LiveSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, liveCacheKey, data, liveCacheTTL).Err()
}

// Latest returns the cached sample, or nil when none is fresh.
func (c *LiveCache) Latest(ctx context.Context) (*transfer.LiveSample, error) {
	data, err := c.client.Get(ctx, liveCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sample transfer.LiveSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}
