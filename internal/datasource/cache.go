package datasource

import (
	"container/list"
	"sync"
	"time"

	"chbridge/internal/schema"
)

// columnsCache is the per-source bounded column-inference cache (default
// size 100, access-TTL 5 minutes; configurable). A minimal LRU+clock-
// expiration combination over a third-party cache here avoids growing the
// dependency surface for a component this small — the one deliberate
// standard-library-only piece of the bridge.
type columnsCache struct {
	mu       sync.Mutex
	size     int
	ttl      time.Duration
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key       string
	value     schema.ColumnList
	expiresAt time.Time
}

const (
	defaultCacheSize = 100
	defaultCacheTTL  = 5 * time.Minute
)

func newColumnsCache(size int, ttl time.Duration) *columnsCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &columnsCache{
		size:    size,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// get returns the cached ColumnList for key if present and not expired,
// refreshing its access time and LRU position.
func (c *columnsCache) get(key string) (schema.ColumnList, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return schema.ColumnList{}, false
	}

	ent := el.Value.(*cacheEntry)
	if time.Now().After(ent.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return schema.ColumnList{}, false
	}

	ent.expiresAt = time.Now().Add(c.ttl)
	c.order.MoveToFront(el)
	return ent.value, true
}

// put inserts or refreshes key, evicting the least-recently-used entry if
// the cache is over capacity.
func (c *columnsCache) put(key string, value schema.ColumnList) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.value = value
		ent.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	ent := &cacheEntry{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	el := c.order.PushFront(ent)
	c.entries[key] = el

	if c.order.Len() > c.size {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}
