package shmring

import "sync"

// Handle is an opaque identifier for a registered Ring.
// The zero handle is invalid.
type Handle uint32

// Registry hands out handles for rings so they can be named in messages
// instead of passed by pointer. The zero value is ready to use.
type Registry struct {
	mu    sync.RWMutex
	rings map[Handle]*Ring
	last  Handle
}

// Add registers r under a fresh handle. Handles are not reused while live;
// zero is never issued.
func (g *Registry) Add(r *Ring) Handle {
	if r == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rings == nil {
		g.rings = make(map[Handle]*Ring)
	}
	for {
		g.last++
		if g.last == 0 {
			continue
		}
		if _, live := g.rings[g.last]; !live {
			break
		}
	}
	g.rings[g.last] = r
	return g.last
}

// Lookup returns the ring for h, or nil.
func (g *Registry) Lookup(h Handle) *Ring {
	if h == 0 {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rings[h]
}

// Remove forgets h. The ring itself is untouched.
func (g *Registry) Remove(h Handle) {
	g.mu.Lock()
	delete(g.rings, h)
	g.mu.Unlock()
}

// Len returns the number of live handles.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rings)
}

// Default is the process-wide registry behind the package functions.
var Default Registry

// NewRegistered allocates a Ring of the given capacity and registers it in
// Default.
func NewRegistered(size int) (Handle, *Ring) {
	r := New(size)
	return Default.Add(r), r
}

func Register(r *Ring) Handle { return Default.Add(r) }
func Get(h Handle) *Ring      { return Default.Lookup(h) }
func Close(h Handle)          { Default.Remove(h) }
