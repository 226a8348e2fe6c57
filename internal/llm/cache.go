package llm

import (
	"sync"

	"discern/internal/model"
)

// responseCache provides thread-safe storage of validated classification
// labels keyed by normalized comment text. A key maps to at most one label;
// writes are last-write-wins and idempotent for identical labels. Entries
// never expire within a run: the cache is the system's only determinism
// guarantee for repeated comments.
type responseCache struct {
	entries map[string]model.Label
	mu      sync.RWMutex
}

func newResponseCache() *responseCache {
	return &responseCache{
		entries: make(map[string]model.Label),
	}
}

// Get retrieves the label for a key if present.
func (c *responseCache) Get(key string) (model.Label, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	label, ok := c.entries[key]
	return label, ok
}

// Put stores a validated label for a key.
func (c *responseCache) Put(key string, label model.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = label
}

// Load seeds the cache with persisted entries.
func (c *responseCache) Load(entries map[string]model.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, label := range entries {
		c.entries[key] = label
	}
}

// Snapshot returns a copy of all entries for persistence.
func (c *responseCache) Snapshot() map[string]model.Label {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]model.Label, len(c.entries))
	for key, label := range c.entries {
		out[key] = label
	}
	return out
}

// Size returns the number of cached entries.
func (c *responseCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
