package screen

import "sync"

// Registry keeps one Screen per admin session key.
type Registry struct {
	mu      sync.Mutex
	screens map[string]*Screen
	newFn   func() *Screen
}

func NewRegistry(newFn func() *Screen) *Registry {
	return &Registry{screens: make(map[string]*Screen), newFn: newFn}
}

// Get returns the screen for key, creating it on first use.
func (r *Registry) Get(key string) *Screen {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.screens[key]; ok {
		return s
	}
	s := r.newFn()
	r.screens[key] = s
	return s
}

// Drop forgets the screen for key, e.g. on logout.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	delete(r.screens, key)
	r.mu.Unlock()
}
