package resource

import (
	"image"
	"sort"
	"sync"
)

// Cache is a process-wide store of decoded images keyed by resolved source.
// An entry means the image is complete and sized.
type Cache struct {
	mu    sync.RWMutex
	items map[string]image.Image
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]image.Image)}
}

// Get returns the cached image for key.
func (c *Cache) Get(key string) (image.Image, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.items[key]
	return img, ok
}

// Put stores img under key.
func (c *Cache) Put(key string, img image.Image) {
	if c == nil || img == nil {
		return
	}
	c.mu.Lock()
	c.items[key] = img
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Set holds the images settled for one export, keyed by the src attribute
// exactly as it appears in the clone.
type Set struct {
	mu    sync.RWMutex
	items map[string]image.Image
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{items: make(map[string]image.Image)}
}

// Get returns the image settled for src.
func (s *Set) Get(src string) (image.Image, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.items[src]
	return img, ok
}

// Put records img for src.
func (s *Set) Put(src string, img image.Image) {
	if s == nil || img == nil {
		return
	}
	s.mu.Lock()
	s.items[src] = img
	s.mu.Unlock()
}

// Len returns the number of settled images.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sources returns the settled sources in sorted order.
func (s *Set) Sources() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
