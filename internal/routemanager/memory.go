package routemanager

import (
	"context"
	"sync"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/route"
)

// entry pairs a registered endpoint with the options it registered with,
// in registration order — later entries are the more specific
// registrations the router's p2p reverse-iteration relies on.
type entry struct {
	endpoint address.Address
	opts     route.Options
}

// InMemory is a non-persistent Manager backed by a map of route to an
// ordered slice of registrations, grounded on tinode/chat's hub.go
// indexing topics in a *sync.Map — here indexing route registrations
// instead of live topics. It exists for tests and local development; the
// persistent route manager spec.md §1 calls out as a separate concern is
// not implemented here.
type InMemory struct {
	mu     sync.Mutex
	routes map[route.Route][]entry
}

// NewInMemory builds an empty in-memory route manager.
func NewInMemory() *InMemory {
	return &InMemory{routes: make(map[route.Route][]entry)}
}

// AddRoute appends a registration for r. Registration order matters: the
// message router's p2p dispatch iterates GetRoutes results in reverse, so
// the most recently added registration for a route is tried first.
func (m *InMemory) AddRoute(_ context.Context, endpoint address.Address, r route.Route, opts route.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[r] = append(m.routes[r], entry{endpoint: endpoint, opts: opts})
	return nil
}

// RemoveRoute removes the (possibly multiple) registrations endpoint made
// for r.
func (m *InMemory) RemoveRoute(_ context.Context, endpoint address.Address, r route.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.routes[r]
	kept := entries[:0]
	for _, e := range entries {
		if e.endpoint != endpoint {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(m.routes, r)
	} else {
		m.routes[r] = kept
	}
	return nil
}

// RemoveRoutes removes every registration endpoint made, across all
// routes. includePersistent is accepted for contract parity with a
// persistent manager but has no effect here: this implementation has
// nothing persistent to spare.
func (m *InMemory) RemoveRoutes(_ context.Context, endpoint address.Address, includePersistent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for r, entries := range m.routes {
		kept := entries[:0]
		for _, e := range entries {
			if e.endpoint != endpoint {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(m.routes, r)
		} else {
			m.routes[r] = kept
		}
	}
	return nil
}

// GetRoutes returns the targets registered for r, in registration order.
func (m *InMemory) GetRoutes(_ context.Context, r route.Route) ([]route.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.routes[r]
	out := make([]route.Target, len(entries))
	for i, e := range entries {
		out[i] = route.Target{Endpoint: e.endpoint, Options: e.opts}
	}
	return out, nil
}
