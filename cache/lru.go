package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache defines the common interface for L1 caches.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Len() int
	Purge()
}

type lruCache[V any] struct {
	inner *expirable.LRU[string, V]
}

// NewLRU creates an LRU cache with capacity and a TTL applied to every entry.
func NewLRU[V any](capacity int, ttl time.Duration) Cache[V] {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &lruCache[V]{inner: expirable.NewLRU[string, V](capacity, nil, ttl)}
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	return c.inner.Get(key)
}

func (c *lruCache[V]) Set(key string, value V) {
	c.inner.Add(key, value)
}

func (c *lruCache[V]) Len() int {
	return c.inner.Len()
}

func (c *lruCache[V]) Purge() {
	c.inner.Purge()
}
