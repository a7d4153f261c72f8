package llms

import "github.com/regulon-ai/regulon/pkg/registry"

// Registry holds the configured Provider, keyed by name, so the
// orchestrator can be built once and reused across requests without
// re-reading configuration per call.
type Registry struct {
	inner *registry.BaseRegistry[Provider]
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.NewBaseRegistry[Provider]()}
}

// Register adds p under its own Name().
func (r *Registry) Register(p Provider) error {
	return r.inner.Register(p.Name(), p)
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	return r.inner.Get(name)
}
