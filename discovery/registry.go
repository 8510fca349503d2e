package discovery

import "sync"

// Registry hands out one Store per session key so concurrent sessions
// never share mutable state. Stores are created lazily with the
// configured defaults and dropped on logout.
type Registry struct {
	mu       sync.RWMutex
	stores   map[string]*Store
	defaults Defaults
}

func NewRegistry(defaults Defaults) *Registry {
	return &Registry{
		stores:   make(map[string]*Store),
		defaults: defaults,
	}
}

// ForSession returns the store for sessionKey, creating it on first use.
// Repeated calls for the same key return the same store, so session
// initialization is idempotent.
func (r *Registry) ForSession(sessionKey string) *Store {
	r.mu.RLock()
	store, exists := r.stores[sessionKey]
	r.mu.RUnlock()
	if exists {
		return store
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if store, exists := r.stores[sessionKey]; exists {
		return store
	}
	store = NewStore(r.defaults)
	r.stores[sessionKey] = store
	return store
}

// Drop discards the state for a finished session.
func (r *Registry) Drop(sessionKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, sessionKey)
}

// Len reports the number of live session stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}
