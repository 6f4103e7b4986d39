package triage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openredress/casetriage/pkg/logging"
)

// cacheKeyPrefix namespaces classification cache entries in Redis.
const cacheKeyPrefix = "triage:classification:"

// DefaultCacheTTL bounds how long a cached classification stays valid.
const DefaultCacheTTL = 24 * time.Hour

// RedisClassificationCache caches validated classifications keyed by a hash
// of the report text. Every backend failure degrades to a cache miss; the
// cache never fails a triage request.
type RedisClassificationCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// NewRedisClassificationCache creates a Redis-backed classification cache.
// A non-positive ttl falls back to DefaultCacheTTL.
func NewRedisClassificationCache(client *redis.Client, ttl time.Duration, logger logging.Logger) *RedisClassificationCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisClassificationCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(logging.F("component", "classification_cache")),
	}
}

// Get returns the cached classification for the report text, if any.
func (c *RedisClassificationCache) Get(ctx context.Context, text string) (*Classification, bool) {
	data, err := c.client.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache read failed", logging.Err(err))
		}
		return nil, false
	}

	var cls Classification
	if err := json.Unmarshal(data, &cls); err != nil {
		c.logger.Debug("cache entry undecodable, ignoring", logging.Err(err))
		return nil, false
	}
	return &cls, true
}

// Put stores a classification for the report text. Failures are logged and
// dropped.
func (c *RedisClassificationCache) Put(ctx context.Context, text string, cls *Classification) {
	data, err := json.Marshal(cls)
	if err != nil {
		c.logger.Debug("cache entry marshal failed", logging.Err(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(text), data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", logging.Err(err))
	}
}

// cacheKey derives a stable key from the report text.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Compile-time interface check.
var _ ClassificationCache = (*RedisClassificationCache)(nil)
