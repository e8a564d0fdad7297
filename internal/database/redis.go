package database

import (
	"context"
	"fmt"
	"time"

	"github.com/radiusdt/roas-attribution/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDB holds the client for the ingested-ad cache. This pipeline only
// reads from it, so the pool is sized for the short bursts of GETs a
// report run produces rather than sustained traffic, and reads are cut
// off quickly so a slow cache degrades a lookup instead of stalling it.
type RedisDB struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedisDB dials the ad-cache Redis and verifies it answers before any
// report run depends on it.
func NewRedisDB(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		ReadTimeout:  2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dial ad cache: %w", err)
	}

	logger.Info("ad cache connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisDB{Client: client, logger: logger}, nil
}

// Close releases the cache connections.
func (r *RedisDB) Close() error {
	if r.Client == nil {
		return nil
	}
	r.logger.Info("ad cache connection closed")
	return r.Client.Close()
}

// Health reports whether the ad cache answers a ping.
func (r *RedisDB) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
