package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire after a fixed TTL.
type Cache[K comparable, V any] struct {
	lruCache *lru.Cache[K, cacheItem[V]]
	ttl      time.Duration
	now      func() time.Time
}

// NewCache panics only on a non-positive size.
func NewCache[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		panic(err)
	}
	return &Cache[K, V]{lruCache: l, ttl: ttl, now: time.Now}
}

func (c *Cache[K, V]) Set(key K, data V) {
	c.lruCache.Add(key, cacheItem[V]{
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 false
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	val, ok := c.lruCache.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return zero, false
	}
	return val.data, true
}

func (c *Cache[K, V]) Delete(key K) {
	c.lruCache.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.lruCache.Len()
}
