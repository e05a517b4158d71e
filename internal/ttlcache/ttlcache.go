// Package ttlcache provides a small in-memory cache with per-entry expiry
// and single-flight production.
package ttlcache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores values for a fixed time-to-live. Concurrent GetOrSet calls for
// the same key run the producer at most once; a failed production is not
// remembered, so the next caller retries cleanly.
type Cache[V any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*entry[V]
	group   singleflight.Group
}

type entry[V any] struct {
	value V
	timer *time.Timer
}

// New creates a cache whose entries expire after ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]*entry[V]),
	}
}

// Set stores value under key, replacing an existing entry and resetting its timer.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

func (c *Cache[V]) setLocked(key string, value V) {
	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}
	c.entries[key] = &entry[V]{
		value: value,
		timer: time.AfterFunc(c.ttl, func() { c.Delete(key) }),
	}
}

// Get returns the value for key. It does not extend the entry's lifetime.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// GetOrSet returns the cached value for key, or invokes producer to create
// it. For a given key only one producer runs at a time; concurrent callers
// share its outcome. If the producer fails, no entry is stored and the error
// is returned to every waiting caller.
func (c *Cache[V]) GetOrSet(key string, producer func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		produced, err := producer()
		if err != nil {
			return nil, err
		}
		c.Set(key, produced)
		return produced, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Delete removes the entry for key and cancels its expiry timer.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.timer.Stop()
		delete(c.entries, key)
	}
}

// Clear removes all entries and cancels their timers.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, key)
	}
}

// Len reports the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
