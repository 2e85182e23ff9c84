package model

import (
	"sync"
	"time"
)

// Attr is what the resolver learns about one path.
type Attr struct {
	Size    uint64
	ModTime *time.Time
	// Failed is set when the path could not be stat'ed (usually vanished).
	Failed bool
}

// ResolverCache maps a path to its resolved attributes for one session.
// The resolver writes it from its worker while the pane reads it, so it
// carries its own lock.
type ResolverCache struct {
	mu    sync.RWMutex
	attrs map[string]Attr
}

func NewResolverCache() *ResolverCache {
	return &ResolverCache{attrs: make(map[string]Attr)}
}

func (c *ResolverCache) Get(path string) (Attr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.attrs[path]
	return a, ok
}

func (c *ResolverCache) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

func (c *ResolverCache) Put(path string, a Attr) {
	c.mu.Lock()
	c.attrs[path] = a
	c.mu.Unlock()
}

// Clear drops every entry. There is no per-path removal.
func (c *ResolverCache) Clear() {
	c.mu.Lock()
	c.attrs = make(map[string]Attr)
	c.mu.Unlock()
}

func (c *ResolverCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.attrs)
}
