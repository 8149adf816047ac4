// Package routemanager defines the contract the message router consumes
// to resolve a route to candidate end-points (component E of spec.md §2).
// Its storage and replication are explicitly out of scope (spec.md §1);
// this package carries only the interface and a non-persistent in-memory
// reference implementation used by tests and the example daemon.
package routemanager

import (
	"context"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/route"
)

// Manager is the contract consumed by the message router (spec.md §6).
// Ordering of GetRoutes results is implementation-defined but stable
// within one call; the router relies on later entries being more specific
// in p2p mode (spec.md §4.F.5) — an implicit dependency on route-table
// ordering that spec.md §9 flags as not guaranteed by this interface.
// Implementations that want to make the contract explicit should sort
// their results so that more specific registrations sort last.
type Manager interface {
	AddRoute(ctx context.Context, endpoint address.Address, r route.Route, opts route.Options) error
	RemoveRoute(ctx context.Context, endpoint address.Address, r route.Route) error
	RemoveRoutes(ctx context.Context, endpoint address.Address, includePersistent bool) error
	GetRoutes(ctx context.Context, r route.Route) ([]route.Target, error)
}
