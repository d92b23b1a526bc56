package provider

import "fmt"

// Registry is the provider-keyed lookup the HTTP boundary goes through.
// It holds configured providers only; no auth logic lives here.
type Registry struct {
	byName map[string]OAuthProvider
}

// NewRegistry indexes the given providers by name. Names must be unique;
// a later provider silently shadowing an earlier one is a wiring bug.
func NewRegistry(list ...OAuthProvider) *Registry {
	r := &Registry{byName: make(map[string]OAuthProvider, len(list))}
	for _, p := range list {
		r.byName[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}
