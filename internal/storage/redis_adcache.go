package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radiusdt/roas-attribution/internal/models"
	"github.com/redis/go-redis/v9"
)

// adCacheKey formats the cache key for an ingested ad.
func adCacheKey(userID, adID string) string {
	return fmt.Sprintf("ad:details:%s:%s", userID, adID)
}

// RedisAdCache reads previously ingested ad metadata from Redis. Values
// are JSON documents written by the ingestion path; this pipeline only
// reads them.
type RedisAdCache struct {
	client *redis.Client
}

// NewRedisAdCache creates an ad cache over a Redis client.
func NewRedisAdCache(client *redis.Client) *RedisAdCache {
	return &RedisAdCache{client: client}
}

func (c *RedisAdCache) IngestedAd(ctx context.Context, userID, adID string) (*models.IngestedAd, error) {
	raw, err := c.client.Get(ctx, adCacheKey(userID, adID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ad cache get: %w", err)
	}

	var ad models.IngestedAd
	if err := json.Unmarshal(raw, &ad); err != nil {
		return nil, fmt.Errorf("decode cached ad %s: %w", adID, err)
	}
	return &ad, nil
}
