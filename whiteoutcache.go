package layerfs

import "sync"

// WhiteoutCache is the abstract set of absolute paths a WhiteoutFS has
// marked as deleted. Key encoding, where relevant, is UTF-8.
type WhiteoutCache interface {
	Contains(path string) bool
	Add(path string) error
	Remove(path string) error
	// Close releases any resources (file handles, connections) the
	// cache holds. It is safe to call on an implementation with
	// nothing to release.
	Close() error
}

// MemCache is an in-memory WhiteoutCache backed by a plain set. It is
// the default cache used by NewOverlay.
type MemCache struct {
	mu      sync.RWMutex
	deleted map[string]struct{}
}

// NewMemCache creates an empty in-memory whiteout cache.
func NewMemCache() *MemCache {
	return &MemCache{deleted: make(map[string]struct{})}
}

func (c *MemCache) Contains(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.deleted[path]
	return ok
}

func (c *MemCache) Add(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted[path] = struct{}{}
	return nil
}

func (c *MemCache) Remove(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.deleted, path)
	return nil
}

func (c *MemCache) Close() error { return nil }

var _ WhiteoutCache = (*MemCache)(nil)
