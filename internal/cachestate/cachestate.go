// Package cachestate implements the Build's serializable cache snapshot: a
// container of per-module state handed out of one build and threaded into
// the next.
package cachestate

import "sync"

// ModuleState is the per-module transform state a Build can persist across
// rollup(input) invocations, e.g. a content hash plus the result of running
// the Graph's resolve/transform pipeline for that module.
type ModuleState struct {
	ID          string `json:"id"`
	ContentHash string `json:"contentHash"`
	// TransformOutput is opaque to the core: it is whatever the Graph's
	// transform pipeline produced for this module, kept only so a future
	// rollup(input) can skip re-running that pipeline on an unchanged module.
	TransformOutput string `json:"transformOutput,omitempty"`
}

// Cache is the snapshot returned from Build.cache and accepted back via
// InputOptions.Cache on a subsequent rollup(input) call.
type Cache struct {
	mu      sync.RWMutex
	Modules map[string]ModuleState `json:"modules"`
}

// New returns an empty cache, used when InputOptions.Cache is absent.
func New() *Cache {
	return &Cache{Modules: make(map[string]ModuleState)}
}

// Clone returns a defensive deep copy, so a Build can keep its own cache
// instance independent of one the caller continues to hold or reuse.
func (c *Cache) Clone() *Cache {
	if c == nil {
		return New()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := New()
	for k, v := range c.Modules {
		out.Modules[k] = v
	}
	return out
}

// Get looks up cached state for a module id.
func (c *Cache) Get(id string) (ModuleState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.Modules[id]
	return s, ok
}

// Set records state for a module id, overwriting any previous entry.
func (c *Cache) Set(id string, state ModuleState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Modules[id] = state
}
