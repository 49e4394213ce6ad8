// Package cache provides the Redis-backed analysis result cache.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/pipeflow/config"
	"github.com/BaSui01/pipeflow/workflow"
)

const keyPrefix = "pipeflow:result:"

// ResultCache memoizes component outputs in Redis, keyed by analysis
// type and a digest of the prepared inputs. It implements
// workflow.ResultCache. Cache failures degrade to misses; they never
// fail a step.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a result cache from the cache configuration.
func New(cfg config.CacheConfig, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &ResultCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "result_cache")),
	}
}

// NewWithClient creates a result cache over an existing client. Used by
// tests with miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "result_cache")),
	}
}

// Get returns a cached component output.
func (c *ResultCache) Get(ctx context.Context, analysisType string, inputs map[string]any) (workflow.ComponentOutput, bool) {
	key, err := cacheKey(analysisType, inputs)
	if err != nil {
		return workflow.ComponentOutput{}, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.String("analysis_type", analysisType), zap.Error(err))
		}
		return workflow.ComponentOutput{}, false
	}

	var output workflow.ComponentOutput
	if err := json.Unmarshal(data, &output); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		return workflow.ComponentOutput{}, false
	}
	return output, true
}

// Set stores a component output with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, analysisType string, inputs map[string]any, output workflow.ComponentOutput) {
	key, err := cacheKey(analysisType, inputs)
	if err != nil {
		return
	}
	data, err := json.Marshal(output)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("analysis_type", analysisType), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("analysis_type", analysisType), zap.Error(err))
	}
}

// Close releases the Redis client.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

// cacheKey digests the inputs into a stable key. json.Marshal sorts map
// keys, so identical inputs produce identical keys.
func cacheKey(analysisType string, inputs map[string]any) (string, error) {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return keyPrefix + analysisType + ":" + hex.EncodeToString(sum[:]), nil
}
