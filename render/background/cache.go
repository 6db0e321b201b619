// Package background loads what is drawn underneath the ink of a page:
// template images and rasterised pages of the original PDF.
package background

import (
	"image"
	"sync"
)

// Cache memoises template images by name. Templates are static assets
// shared by every document, so one Cache is meant to live as long as the
// process. Failed loads are not cached.
type Cache struct {
	mu     sync.Mutex
	images map[string]image.Image
	loads  int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{images: map[string]image.Image{}}
}

// Get returns the image cached for name, calling load to populate it on
// first use. Concurrent callers for the same name wait for a single load.
func (c *Cache) Get(name string, load func() (image.Image, error)) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[name]; ok {
		return img, nil
	}
	c.loads++
	img, err := load()
	if err != nil {
		return nil, err
	}
	c.images[name] = img
	return img, nil
}

// Loads returns how many times a load function was called.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Len is the number of cached templates.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}
