package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"JobMatcher/internal/ports"
)

// VectorCache is the lookup surface the cached embedder needs. Both
// operations are best-effort: a failed lookup is a miss, a failed store is
// ignored.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vector []float32)
}

// RedisCache stores vectors in Redis, JSON-encoded, with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ VectorCache = (*RedisCache)(nil)

// NewRedisCache parses redisURL and verifies connectivity.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{rdb: client, ttl: ttl}, nil
}

// Get returns the cached vector for key, or false on miss or decode error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// Set stores the vector under key, ignoring failures.
func (c *RedisCache) Set(ctx context.Context, key string, vector []float32) {
	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CachedEmbedder fronts an Embedder with a vector cache keyed by model
// version and text hash. The model is deterministic for a fixed version, so
// a cache hit is exact, and re-embedding unchanged text on every run is
// wasted inference.
type CachedEmbedder struct {
	inner  ports.Embedder
	cache  VectorCache
	logger *slog.Logger
}

var _ ports.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder decorates inner with cache.
func NewCachedEmbedder(inner ports.Embedder, cache VectorCache, logger *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, logger: logger}
}

// ModelVersion reports the wrapped embedder's model.
func (e *CachedEmbedder) ModelVersion() string {
	return e.inner.ModelVersion()
}

// EmbedBatch serves what it can from the cache and forwards only misses to
// the wrapped embedder, reassembling results in input order.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIndexes []int

	for i, text := range texts {
		if vec, ok := e.cache.Get(ctx, e.key(text)); ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) > 0 {
		fresh, err := e.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range fresh {
			idx := missIndexes[j]
			vectors[idx] = vec
			e.cache.Set(ctx, e.key(texts[idx]), vec)
		}
	}

	if e.logger != nil {
		e.logger.Debug("embed batch served",
			"total", len(texts), "cache_hits", len(texts)-len(missTexts))
	}

	return vectors, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + e.inner.ModelVersion() + ":" + hex.EncodeToString(sum[:])
}
