package adapter

import (
	"context"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
)

// Adapter parses one provider's raw webhook payload into zero or more
// normalized events. Implementations skip malformed sub-structures within
// a batch and only return an error for a payload that is unusable as a
// whole.
type Adapter interface {
	Platform() model.Platform
	Parse(ctx context.Context, raw []byte) ([]model.NormalizedEvent, error)
}

// Registry maps platforms to their adapters.
type Registry struct {
	adapters map[model.Platform]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.Platform]Adapter),
	}
}

// NewDefaultRegistry creates a registry with all supported platform
// adapters registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewFacebookAdapter())
	r.Register(NewWabaAdapter())
	r.Register(NewJNEAdapter())
	r.Register(NewSicepatAdapter())
	r.Register(NewAnterajaAdapter())
	return r
}

// Register registers an adapter for its platform
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

// Lookup returns the adapter for a platform, or false when none is registered
func (r *Registry) Lookup(platform model.Platform) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}
