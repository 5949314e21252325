// Package cache keeps hot read-only data in Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"rewards-hub/internal/model"
)

const catalogKey = "rewards:catalog:active"

// CatalogCache stores the active reward catalog as one JSON value.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a new CatalogCache. A non-positive ttl keeps the
// value until it is overwritten.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl < 0 {
		ttl = 0
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Get returns the cached catalog. ok is false on a cache miss.
func (c *CatalogCache) Get(ctx context.Context) ([]model.RewardCatalogEntry, bool, error) {
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "failed to read catalog cache")
	}

	var entries []model.RewardCatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, errors.Wrap(err, "failed to decode catalog cache")
	}
	return entries, true, nil
}

// Set replaces the cached catalog.
func (c *CatalogCache) Set(ctx context.Context, entries []model.RewardCatalogEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "failed to encode catalog")
	}
	if err := c.client.Set(ctx, catalogKey, raw, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to write catalog cache")
	}
	return nil
}
