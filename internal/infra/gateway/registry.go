package gateway

import (
	"strings"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/ports/adapter"
)

var _ adapter.Registry = (*Registry)(nil)

// Registry is the startup-built lookup table of vendor adapters. Handlers
// resolve adapters by the {vendor} path segment; nothing is constructed
// ad hoc inside request handling.
type Registry struct {
	adapters map[string]adapter.GatewayAdapter
}

func NewRegistry(adapters ...adapter.GatewayAdapter) *Registry {
	items := make(map[string]adapter.GatewayAdapter, len(adapters))
	for _, a := range adapters {
		items[a.Name()] = a
	}
	return &Registry{adapters: items}
}

func (r *Registry) Resolve(vendorName string) (adapter.GatewayAdapter, error) {
	a, ok := r.adapters[strings.ToLower(vendorName)]
	if !ok {
		return nil, domain.ErrUnknownGateway
	}
	return a, nil
}

// Names lists registered vendors, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}
