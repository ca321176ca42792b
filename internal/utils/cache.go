package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[T any] struct {
	value     T
	expiredAt time.Time
}

// SearchCache 带过期时间的 LRU 缓存，并发安全
type SearchCache[T any] struct {
	storage *lru.Cache[string, cacheItem[T]]
	ttl     time.Duration
}

// NewSearchCache size 为最大条数，ttl 为有效期
func NewSearchCache[T any](size int, ttl time.Duration) *SearchCache[T] {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, cacheItem[T]](size)
	return &SearchCache[T]{storage: c, ttl: ttl}
}

func (c *SearchCache[T]) Set(key string, value T) {
	c.storage.Add(key, cacheItem[T]{value: value, expiredAt: time.Now().Add(c.ttl)})
}

// Get 过期条目视为不存在并被移除
func (c *SearchCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(item.expiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.value, true
}

// Delete 移除条目
func (c *SearchCache[T]) Delete(key string) {
	c.storage.Remove(key)
}
