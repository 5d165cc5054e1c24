// Package texture owns the lifecycle of atlas page textures: the path keyed cache, the deferred
// delete queue, asynchronous loading through spine.TextureHooks and optional hot reload.
package texture

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer/bind_group_provider"
)

// Handle is a GPU texture with its sampler and bind group.
type Handle = bind_group_provider.BindGroupProvider

// cache is the implementation of the Cache interface.
type cache struct {
	mu      *sync.Mutex
	entries map[string]Handle
	deletes []Handle
}

// Cache maps normalized file paths to uploaded textures and queues textures for deletion on the render thread.
// Entries are never evicted automatically. A single mutex guards the map and the queue, so the Cache can be
// shared between loader workers and the render thread.
type Cache interface {
	// Lookup returns the texture cached for a path.
	//
	// Parameters:
	//   - path: the texture file path, normalized before lookup
	//
	// Returns:
	//   - Handle: the cached texture
	//   - bool: false if nothing is cached for the path
	Lookup(path string) (Handle, bool)

	// Insert stores a texture for a path. A texture already stored for the path is returned
	// and the caller decides its fate.
	//
	// Parameters:
	//   - path: the texture file path
	//   - h: the texture to store
	//
	// Returns:
	//   - Handle: the replaced texture, or nil
	//   - bool: true if an entry was replaced
	Insert(path string, h Handle) (Handle, bool)

	// Evict removes the entry for a path and queues its texture for deletion.
	//
	// Parameters:
	//   - path: the texture file path
	//
	// Returns:
	//   - bool: true if an entry was removed
	Evict(path string) bool

	// EnqueueDelete queues a texture for deletion during the next render.
	//
	// Parameters:
	//   - h: the texture to delete, ignored when nil
	EnqueueDelete(h Handle)

	// DrainDeletes removes and returns every queued texture in queue order.
	//
	// Returns:
	//   - []Handle: the textures to delete
	DrainDeletes() []Handle

	// Len returns the number of cached paths.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// Paths returns the normalized keys of every cached texture.
	//
	// Returns:
	//   - []string: the cached paths in no particular order
	Paths() []string
}

var _ Cache = &cache{}

// NewCache creates an empty texture cache.
//
// Returns:
//   - Cache: the new cache
func NewCache() Cache {
	return &cache{
		mu:      &sync.Mutex{},
		entries: make(map[string]Handle),
	}
}

func (c *cache) Lookup(path string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[common.NormalizePath(path)]
	return h, ok
}

func (c *cache) Insert(path string, h Handle) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := common.NormalizePath(path)
	prior, ok := c.entries[key]
	c.entries[key] = h
	if ok && prior == h {
		return nil, false
	}
	return prior, ok
}

func (c *cache) Evict(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := common.NormalizePath(path)
	h, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	if h != nil {
		c.deletes = append(c.deletes, h)
	}
	return true
}

func (c *cache) EnqueueDelete(h Handle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, h)
}

func (c *cache) DrainDeletes() []Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.deletes
	c.deletes = nil
	return out
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}
