package cache

import (
	"sync"
	"time"
)

type item struct {
	value     any
	expiresAt time.Time
}

type SimpleCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]item
	now   func() time.Time
}

func (c *SimpleCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(it.expiresAt) {
		c.Release(key)
		return nil, false
	}

	return it.value, true
}

func (c *SimpleCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *SimpleCache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

func NewSimpleCache(ttl time.Duration) *SimpleCache {
	return &SimpleCache{
		ttl:   ttl,
		items: make(map[string]item),
		now:   time.Now,
	}
}
