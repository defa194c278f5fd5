package api

import (
	"container/list"
	"os"
	"strconv"
	"sync"
)

const defaultRunCacheSize = 100

// RunCache holds the details of finished runs, evicting the least recently
// read entry once full. Entries are never invalidated.
type RunCache struct {
	mu       sync.Mutex
	capacity int
	lru      *list.List // front is most recent; values are *cacheEntry
	index    map[string]*list.Element
}

type cacheEntry struct {
	runID  string
	detail *RunDetail
}

// NewRunCache returns a cache holding up to capacity runs; capacity <= 0
// selects the default of 100.
func NewRunCache(capacity int) *RunCache {
	if capacity <= 0 {
		capacity = defaultRunCacheSize
	}
	return &RunCache{
		capacity: capacity,
		lru:      list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// NewRunCacheFromEnv sizes the cache from RUN_CACHE_SIZE. Unset or invalid
// values fall back to the default.
func NewRunCacheFromEnv() *RunCache {
	n, _ := strconv.Atoi(os.Getenv("RUN_CACHE_SIZE"))
	return NewRunCache(n)
}

func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Get returns the cached detail for runID, or nil.
func (c *RunCache) Get(runID string) *RunDetail {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[runID]
	if !ok {
		return nil
	}
	c.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).detail
}

// Put stores d under runID.
func (c *RunCache) Put(runID string, d *RunDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[runID]; ok {
		el.Value.(*cacheEntry).detail = d
		c.lru.MoveToFront(el)
		return
	}

	c.index[runID] = c.lru.PushFront(&cacheEntry{runID: runID, detail: d})
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheEntry).runID)
	}
}
