package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the lifetime of an analysis result.
const DefaultTTL = 15 * time.Second

type ttlEntry[V any] struct {
	value V
	at    time.Time
}

// TTLCache holds values for a fixed lifetime. Expired entries read as absent
// and are replaced on the next Set; there is no background sweep.
type TTLCache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]ttlEntry[V]
}

// NewTTLCache creates a cache whose entries live for ttl. A non-positive ttl
// uses DefaultTTL.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]ttlEntry[V]),
	}
}

// SetClock replaces the time source.
func (c *TTLCache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the live value for key.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{value: value, at: c.now()}
}

// GetOrCompute returns the live value for key, computing and storing it
// when missing or expired.
func (c *TTLCache[V]) GetOrCompute(key string, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Set(key, v)
	return v
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (c *TTLCache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, live or expired.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key builds a root-scoped cache key.
func Key(root string, parts ...string) string {
	return NormalizeRoot(root) + "::" + strings.Join(parts, "::")
}
