package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache is a bounded LRU from query text to its embedding. The key
// is the SHA-256 hex digest of the raw UTF-8 query bytes; no normalization
// is applied, so the query text is the cache key verbatim.
type EmbeddingCache struct {
	lru    *lru.Cache[string, []float32]
	hits   atomic.Int64
	misses atomic.Int64
	mu     sync.Mutex
}

// New creates a cache holding up to capacity embeddings.
func New(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1024
	}
	c, _ := lru.New[string, []float32](capacity)
	return &EmbeddingCache{lru: c}
}

func key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Get returns the embedding for query, invoking embed on a miss and
// storing the result. Hit and miss counters track every successful call; a
// failed embed is neither cached nor counted.
func (c *EmbeddingCache) Get(query string, embed func(string) ([]float32, error)) ([]float32, error) {
	k := key(query)

	c.mu.Lock()
	if vec, ok := c.lru.Get(k); ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := embed(query)
	if err != nil {
		return nil, err
	}
	c.misses.Add(1)

	c.mu.Lock()
	c.lru.Add(k, vec)
	c.mu.Unlock()
	return vec, nil
}

func (c *EmbeddingCache) Hits() int64 { return c.hits.Load() }

func (c *EmbeddingCache) Misses() int64 { return c.misses.Load() }

// HitRate is hits/(hits+misses), or 0 when both counters are zero.
func (c *EmbeddingCache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
