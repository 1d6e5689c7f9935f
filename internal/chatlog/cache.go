package chatlog

import "sync"

// Cache holds the newest known session per channel identity.
type Cache struct {
	mu      sync.RWMutex
	handles map[Identity]*Handle
}

// NewCache creates an empty handle cache.
func NewCache() *Cache {
	return &Cache{handles: make(map[Identity]*Handle)}
}

// Get returns the cached handle for id.
func (c *Cache) Get(id Identity) (*Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handles[id]
	return h, ok
}

// InsertIfNewer stores h unless a handle of the same or a later session is
// already cached for its identity. It returns the handle cached after the
// call and whether h was stored. Comparison and store happen under one lock.
func (c *Cache) InsertIfNewer(h *Handle) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := h.Identity()
	cur, ok := c.handles[id]
	if ok && !h.NewerThan(cur) {
		return cur, false
	}
	c.handles[id] = h
	return h, true
}

// RemovePath drops the handle reading path, if any.
func (c *Cache) RemovePath(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, h := range c.handles {
		if h.Path == path {
			delete(c.handles, id)
			return true
		}
	}
	return false
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// Handles returns a snapshot of the cached handles.
func (c *Cache) Handles() []*Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Handle, 0, len(c.handles))
	for _, h := range c.handles {
		out = append(out, h)
	}
	return out
}
