package homography

import (
	"errors"
	"sync"
)

// Cache memoizes stored transforms per display so the frame loop does not hit
// the disk on every frame. A Cache belongs to one tracking session: what it
// read at first use stands until Invalidate or until the session ends.
// Unreadable files are not cached and are read again on the next Get.
type Cache struct {
	store *Store

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	m   Matrix
	err error
}

// NewCache wraps store.
func NewCache(store *Store) *Cache {
	return &Cache{store: store, entries: make(map[string]cacheEntry)}
}

// Get returns the transform for displayID, or ErrNotFound when the display
// has never been calibrated.
func (c *Cache) Get(displayID string) (Matrix, error) {
	c.mu.RLock()
	e, ok := c.entries[displayID]
	c.mu.RUnlock()
	if ok {
		return e.m, e.err
	}

	rec, err := c.store.Load(displayID)
	switch {
	case err == nil:
		e = cacheEntry{m: rec.Matrix}
	case errors.Is(err, ErrNotFound):
		e = cacheEntry{err: err}
	default:
		return Matrix{}, err
	}
	c.mu.Lock()
	c.entries[displayID] = e
	c.mu.Unlock()
	return e.m, e.err
}

// Invalidate drops the cached entry for displayID.
func (c *Cache) Invalidate(displayID string) {
	c.mu.Lock()
	delete(c.entries, displayID)
	c.mu.Unlock()
}
