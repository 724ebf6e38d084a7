package source

import "github.com/Texasdada13/procurement-intel-tool/internal/engine"

// Registry maps adapter kinds to their implementations. New source shapes are
// added by registering an implementation, not by branching in the
// orchestrator.
type Registry struct {
	adapters map[engine.AdapterKind]engine.Adapter
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[engine.AdapterKind]engine.Adapter)}
}

// Register binds an adapter to a kind, replacing any previous binding.
func (r *Registry) Register(kind engine.AdapterKind, adapter engine.Adapter) {
	r.adapters[kind] = adapter
}

// For returns the adapter registered for the kind.
func (r *Registry) For(kind engine.AdapterKind) (engine.Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}
