package workspace

import (
	"maps"
	"sync"
)

// Registry keeps one State per signed-in user for the life of the process.
type Registry struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*State)}
}

// Get returns the user's State, creating it from settings() on first use.
// settings is called without the registry lock held.
func (r *Registry) Get(userID string, settings func() Settings) *State {
	r.mu.Lock()
	st, ok := r.states[userID]
	r.mu.Unlock()
	if ok {
		return st
	}

	fresh := New(settings())

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[userID]; ok {
		return st
	}
	r.states[userID] = fresh
	return fresh
}

// Lookup returns the user's State if one was created.
func (r *Registry) Lookup(userID string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	return st, ok
}

// Drop forgets the user's State.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	delete(r.states, userID)
	r.mu.Unlock()
}

// Each calls fn for every live State.
func (r *Registry) Each(fn func(userID string, st *State)) {
	r.mu.Lock()
	snapshot := maps.Clone(r.states)
	r.mu.Unlock()
	for id, st := range snapshot {
		fn(id, st)
	}
}
