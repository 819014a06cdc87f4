package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/childsafe-za/childsafe-rag/cache"
	"github.com/childsafe-za/childsafe-rag/config"
)

// CachedProvider memoises query embeddings. Batch calls used by ingestion
// bypass the cache.
type CachedProvider struct {
	Provider
	cache cache.Cache[[]float32]
}

// WithCache wraps p when cfg enables the cache and returns p unchanged
// otherwise.
func WithCache(p Provider, cfg config.CacheConfig) Provider {
	if !cfg.Enable {
		return p
	}
	return &CachedProvider{
		Provider: p,
		cache:    cache.NewLRU[[]float32](cfg.Capacity, time.Duration(cfg.TTLSeconds)*time.Second),
	}
}

func (c *CachedProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.Provider.GetProviderType(), text)
	if v, ok := c.cache.Get(key); ok {
		return cloneVector(v), nil
	}
	v, err := c.Provider.GetEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, cloneVector(v))
	return v, nil
}

func cacheKey(provider, text string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
