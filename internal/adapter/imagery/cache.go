package imagery

import (
	"context"
	"fmt"
	"sync"

	"github.com/ejayaguirre/geopulse/internal/domain"
)

// CachedCatalog wraps a RasterCatalog with an in-memory LRU cache. Scene
// sets and rasters for a fixed query are immutable upstream, so cached
// responses never go stale within a process lifetime.
type CachedCatalog struct {
	inner   domain.RasterCatalog
	scenes  *lruCache[[]domain.Scene]
	rasters *lruCache[domain.Raster]
}

// NewCachedCatalog creates a cache decorator around a raster catalog.
func NewCachedCatalog(inner domain.RasterCatalog, maxEntries int) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		scenes:  newLRUCache[[]domain.Scene](maxEntries),
		rasters: newLRUCache[domain.Raster](maxEntries),
	}
}

func (c *CachedCatalog) Scenes(ctx context.Context, grid domain.Grid, startDate, endDate string, maxCloud int) ([]domain.Scene, error) {
	key := fmt.Sprintf("%s|%dx%d|%s|%s|%d", grid.Region.BBox(), grid.Width, grid.Height, startDate, endDate, maxCloud)
	if scenes, ok := c.scenes.get(key); ok {
		return scenes, nil
	}
	scenes, err := c.inner.Scenes(ctx, grid, startDate, endDate, maxCloud)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty responses so a transiently empty window can be retried.
	if len(scenes) > 0 {
		c.scenes.put(key, scenes)
	}
	return scenes, nil
}

func (c *CachedCatalog) PopulationDensity(ctx context.Context, grid domain.Grid) (domain.Raster, error) {
	key := fmt.Sprintf("%s|%dx%d", grid.Region.BBox(), grid.Width, grid.Height)
	if raster, ok := c.rasters.get(key); ok {
		return raster, nil
	}
	raster, err := c.inner.PopulationDensity(ctx, grid)
	if err != nil {
		return domain.Raster{}, err
	}
	c.rasters.put(key, raster)
	return raster, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
