package engine

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scormkit/scormkit/internal/types"
)

// resultCache memoizes successful extraction results with LRU eviction and
// optional TTL. The in-memory map and the LRU list share one mutex so
// lookup-then-insert stays atomic under concurrent requests.
type resultCache struct {
	entries    map[string]*cacheEntry
	mutex      sync.Mutex
	maxEntries int
	ttl        time.Duration

	// LRU doubly-linked list with dummy head and tail
	head *cacheEntry
	tail *cacheEntry

	// statistics (atomic for lock-free reads)
	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	key       string
	value     *types.ExtractedPackageInfo
	createdAt time.Time

	prev *cacheEntry
	next *cacheEntry
}

// CacheStats is a point-in-time snapshot of cache behavior, exposed on the
// health endpoint and the inspect command.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// newResultCache creates a cache bounded to maxEntries. A ttl of zero means
// entries never expire.
func newResultCache(maxEntries int, ttl time.Duration) *resultCache {
	c := &resultCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
	c.head = &cacheEntry{}
	c.tail = &cacheEntry{}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a cached result, refreshing its LRU position.
func (c *resultCache) Get(key string) (*types.ExtractedPackageInfo, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.createdAt) > c.ttl {
		c.removeFromList(entry)
		delete(c.entries, key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.moveToFront(entry)
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

// Set stores a result, evicting the least recently used entries past the
// configured bound.
func (c *resultCache) Set(key string, value *types.ExtractedPackageInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.entries[key]; exists {
		existing.value = value
		existing.createdAt = time.Now()
		c.moveToFront(existing)
		return
	}

	for len(c.entries) >= c.maxEntries && c.tail.prev != c.head {
		lru := c.tail.prev
		c.removeFromList(lru)
		delete(c.entries, lru.key)
		atomic.AddInt64(&c.evictions, 1)
	}

	entry := &cacheEntry{
		key:       key,
		value:     value,
		createdAt: time.Now(),
	}
	c.entries[key] = entry
	c.addToFront(entry)
}

// Delete removes one entry; it reports whether the entry existed.
func (c *resultCache) Delete(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return false
	}
	c.removeFromList(entry)
	delete(c.entries, key)
	return true
}

// DeleteCourse removes every entry whose key belongs to courseID,
// regardless of locator, returning the number removed.
func (c *resultCache) DeleteCourse(courseID string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if strings.HasSuffix(key, "|"+courseID) {
			c.removeFromList(entry)
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and resets statistics.
func (c *resultCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Stats returns a snapshot of cache statistics.
func (c *resultCache) Stats() CacheStats {
	c.mutex.Lock()
	entries := len(c.entries)
	c.mutex.Unlock()

	return CacheStats{
		Entries:   entries,
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// LRU doubly-linked list operations
func (c *resultCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *resultCache) removeFromList(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *resultCache) moveToFront(entry *cacheEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
