package diagnostics

import (
	"sort"
	"sync"
)

// Registry lists the live graphs of a process.
type Registry struct {
	mu     sync.RWMutex
	graphs map[*Graph]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{graphs: make(map[*Graph]struct{})}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds g. Registering twice is a no-op.
func (r *Registry) Register(g *Graph) {
	if g == nil {
		return
	}
	r.mu.Lock()
	r.graphs[g] = struct{}{}
	r.mu.Unlock()
}

// Unregister removes g.
func (r *Registry) Unregister(g *Graph) {
	r.mu.Lock()
	delete(r.graphs, g)
	r.mu.Unlock()
}

// Len returns the number of registered graphs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs)
}

// Snapshot returns a snapshot of every graph, sorted by name.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	graphs := make([]*Graph, 0, len(r.graphs))
	for g := range r.graphs {
		graphs = append(graphs, g)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(graphs))
	for _, g := range graphs {
		out = append(out, g.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
