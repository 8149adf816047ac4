package router

import (
	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/routemanager"
	"github.com/kprice/routefabric/internal/routing"
)

// Factory is a stateless builder that creates a new route-endpoint via
// the routing system and constructs a Router bound to it and a
// caller-supplied Handler (component G, spec.md §2).
type Factory struct {
	System         *routing.System
	Manager        routemanager.Manager
	Metrics        Metrics
	// DefaultAddress is used by NewDefault when no address is given; in
	// the example daemon (cmd/routerfabricd) it is loaded from
	// configuration via internal/config at factory-construction time.
	DefaultAddress address.Address
}

// NewFactory builds a Factory over sys/manager. metrics may be nil.
func NewFactory(sys *routing.System, manager routemanager.Manager, metrics Metrics, defaultAddress address.Address) *Factory {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Factory{System: sys, Manager: manager, Metrics: metrics, DefaultAddress: defaultAddress}
}

// New creates a new endpoint for addr and a Router bound to it and
// handler.
func (f *Factory) New(addr address.Address, handler Handler) (*Router, error) {
	ep, err := f.System.Create(addr)
	if err != nil {
		return nil, err
	}
	return New(handler, ep, f.Manager, WithMetrics(f.Metrics)), nil
}

// NewDefault creates a router bound to the factory's configured default
// address.
func (f *Factory) NewDefault(handler Handler) (*Router, error) {
	return f.New(f.DefaultAddress, handler)
}
