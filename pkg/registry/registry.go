// Package registry resolves gate names to live gate instances.
//
// A Registry owns the only mutable shared state in the system: the cache mapping
// gate name to its singleton instance. Hosts that want a shared cache share one
// Registry value; hosts that want isolation construct per-request instances.
package registry

import (
	"log/slog"
	"sync"

	"github.com/routegate/routegate/pkg/domain"
)

// Loader is the fallback strategy consulted when a gate name has no
// pre-registered factory. Implementations resolve a factory from an
// environment-specific source (a plugin directory, generated tables, etc.).
// Load must return an error, not a nil factory, when the name is unknown.
type Loader interface {
	Load(name string) (domain.Factory, error)
}

// Registry maps gate names to singleton gate instances, creating them lazily
// from registered factories and caching them for the registry's lifetime.
// At most one instance per name ever exists within one Registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]domain.Factory
	instances map[string]domain.Gate
	loader    Loader
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLoader installs the fallback loader consulted for unregistered names.
func WithLoader(l Loader) Option {
	return func(r *Registry) { r.loader = l }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New creates a registry seeded with the given factory map. The map is copied;
// later mutation of the argument does not affect the registry.
func New(factories map[string]domain.Factory, opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[string]domain.Factory, len(factories)),
		instances: make(map[string]domain.Gate),
		logger:    slog.Default(),
	}
	for name, factory := range factories {
		r.factories[name] = factory
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the factory for name. Registering a factory after a
// failed Resolve makes subsequent Resolve calls for that name succeed; it does
// not evict an instance already cached under the name.
func (r *Registry) Register(name string, factory domain.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Resolve returns the live gate instance for name, instantiating and caching it
// on first use. Resolution order: cached instance, registered factory, fallback
// loader. When none apply it fails with *domain.UnknownGateError; a missing gate
// is never treated as a pass.
func (r *Registry) Resolve(name string) (domain.Gate, error) {
	r.mu.RLock()
	if gate, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return gate, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another caller may have won the race.
	if gate, ok := r.instances[name]; ok {
		return gate, nil
	}

	factory, ok := r.factories[name]
	if !ok && r.loader != nil {
		loaded, err := r.loader.Load(name)
		if err != nil {
			r.logger.Debug("fallback loader failed", "gate", name, "error", err)
		} else if loaded != nil {
			factory = loaded
			r.factories[name] = loaded
			ok = true
		}
	}
	if !ok {
		return nil, &domain.UnknownGateError{Name: name}
	}

	gate := factory()
	r.instances[name] = gate
	r.logger.Debug("gate instantiated", "gate", name)
	return gate, nil
}

// Names returns the names with a registered factory, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
