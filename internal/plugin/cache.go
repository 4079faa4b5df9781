package plugin

import "sync"

// ClearObserver is notified whenever the plugin cache is cleared or a
// plugin is added to it (new or replacing an existing entry), so a
// dependent cache (the condition
// evaluator's memoisation table) can be invalidated in step. See spec
// §3 "the condition cache... is cleared whenever any plugin is
// (re)loaded or either metadata list is reloaded."
type ClearObserver interface {
	OnPluginCacheInvalidated()
}

// Cache is the shared, mutex-guarded store of loaded plugins. Keys are
// case-folded plugin names (see FoldName) so lookups are
// case-insensitive regardless of how callers spell the filename.
//
// Readers take the shared (read) lock; the parallel Scanner and any
// single-plugin reload take the exclusive (write) lock briefly per
// insert, per spec §5's shared-resource description.
type Cache struct {
	mu        sync.RWMutex
	plugins   map[string]*Plugin
	observers []ClearObserver
}

// NewCache creates an empty plugin cache.
func NewCache() *Cache {
	return &Cache{plugins: make(map[string]*Plugin)}
}

// Observe registers a ClearObserver to be notified on invalidation.
func (c *Cache) Observe(o ClearObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// AddPlugin inserts p into the cache, replacing any prior entry for the
// same (case-folded) name atomically.
func (c *Cache) AddPlugin(p *Plugin) {
	key := FoldName(p.Name)

	c.mu.Lock()
	c.plugins[key] = p
	observers := c.observers
	c.mu.Unlock()

	for _, o := range observers {
		o.OnPluginCacheInvalidated()
	}
}

// GetPlugin returns the cached plugin by name (case-insensitive) and
// whether it was found.
func (c *Cache) GetPlugin(name string) (*Plugin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.plugins[FoldName(name)]
	return p, ok
}

// Names returns every cached plugin's logical name, in an unspecified
// order; callers that need determinism (the sorter) re-sort this
// themselves per spec §5 ("the sorter never inspects insertion order").
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.plugins))
	for _, p := range c.plugins {
		names = append(names, p.Name)
	}
	return names
}

// Len reports the number of cached plugins.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plugins)
}

// Clear empties the cache and notifies observers (the condition cache)
// so they drop any memoised results computed against the old plugin set.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.plugins = make(map[string]*Plugin)
	observers := c.observers
	c.mu.Unlock()

	for _, o := range observers {
		o.OnPluginCacheInvalidated()
	}
}
