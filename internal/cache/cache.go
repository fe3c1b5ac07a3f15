// Package cache provides a bounded in-memory cache with per-entry TTL.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds the number of entries kept by New.
const DefaultSize = 4096

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an LRU cache whose entries expire individually.
type Cache[K comparable, V any] struct {
	items *lru.Cache[K, entry[V]]
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a cache of DefaultSize entries that sweeps expired entries
// every cleanupInterval. A zero interval disables the sweeper.
func New[K comparable, V any](cleanupInterval time.Duration) *Cache[K, V] {
	return NewSized[K, V](DefaultSize, cleanupInterval)
}

// NewSized creates a cache holding at most size entries.
func NewSized[K comparable, V any](size int, cleanupInterval time.Duration) *Cache[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	items, err := lru.New[K, entry[V]](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}

	c := &Cache[K, V]{
		items: items,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		c.wg.Add(1)
		go c.sweep(cleanupInterval)
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	e, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if e.expired(c.now()) {
		c.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl never expires.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.items.Add(key, e)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.items.Remove(key)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	return c.items.Len()
}

// Close stops the sweeper.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
}

func (c *Cache[K, V]) sweep(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *Cache[K, V]) purgeExpired() {
	now := c.now()
	for _, k := range c.items.Keys() {
		if e, ok := c.items.Peek(k); ok && e.expired(now) {
			c.items.Remove(k)
		}
	}
}
