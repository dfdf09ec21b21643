package session

import (
	"strings"
	"sync"
)

// Cache keys.
const (
	KeyPlaylists   = "playlists"
	KeyFeatured    = "featured"
	KeyNewReleases = "new-releases"
	KeyRecent      = "recent"
)

func PlaylistTracksKey(id string) string { return "playlist-tracks:" + id }
func AlbumTracksKey(id string) string    { return "album-tracks:" + id }

func SearchKey(kind, query string) string {
	return "search:" + kind + ":" + strings.ToLower(query)
}

type entry struct {
	populated bool
	value     any
}

// Cache maps keys to fetched values. A populated entry may hold an empty
// value and is still served without a refetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64
}

func NewCache() *Cache {
	return &Cache{entries: map[string]entry{}}
}

// Get returns the value and whether the key has been populated.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !e.populated {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{populated: true, value: value}
}

func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Reset drops every entry. Fetches started before the reset will not repopulate it.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]entry{}
	c.gen++
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Cache) setAt(gen uint64, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.entries[key] = entry{populated: true, value: value}
}

// cached serves key from c or stores the result of fetch. Errors are not cached.
func cached[T any](c *Cache, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := c.generation()
	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	c.setAt(gen, key, v)
	return v, nil
}
