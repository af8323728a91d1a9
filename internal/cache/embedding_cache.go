// Package cache provides a Redis-backed embedding cache so re-ingesting
// unchanged documents costs no embedding-service calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docchat/internal/rag"
)

// EmbeddingCache wraps an Embedder with a Redis lookaside cache keyed by the
// embedding model and a hash of the text. Cache failures are never fatal: on
// any Redis error the inner embedder is used directly.
type EmbeddingCache struct {
	inner  rag.Embedder
	client *redisv9.Client
	model  string
	ttl    time.Duration
}

func NewEmbeddingCache(inner rag.Embedder, client *redisv9.Client, model string, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EmbeddingCache{inner: inner, client: client, model: model, ttl: ttl}
}

func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.get(ctx, key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, vec)
	return vec, nil
}

func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.get(ctx, c.key(text)); ok {
			vectors[i] = vec
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(fresh), len(missing))
	}
	for i, vec := range fresh {
		vectors[missingIdx[i]] = vec
		c.set(ctx, c.key(missing[i]), vec)
	}
	return vectors, nil
}

func (c *EmbeddingCache) get(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (c *EmbeddingCache) set(ctx context.Context, key string, vec []float32) {
	payload, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, payload, c.ttl).Err()
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:%s:%s", c.model, hex.EncodeToString(sum[:]))
}
