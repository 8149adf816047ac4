// Package route holds the hierarchical route key and the registration
// options carried alongside a route target, grounded on the route-key
// style of tinode/chat's topic names (hierarchical, "most specific first"
// fallback performed by callers).
package route

import (
	"strings"

	"github.com/kprice/routefabric/internal/address"
)

// Route is a hierarchical lexical key used to look up interested
// end-points, e.g. "orders.created.priority".
type Route string

// Less defines the user-visible lexical order for a Route: plain
// byte-wise string comparison. Implementations that need a different
// order (e.g. depth-first, reverse) can sort a Hierarchy themselves before
// handing it to the router — the router only consumes iteration order, it
// never re-sorts.
func (r Route) Less(o Route) bool {
	return string(r) < string(o)
}

// Segments splits a route on '.', the hierarchy delimiter.
func (r Route) Segments() []string {
	return strings.Split(string(r), ".")
}

// Hierarchy is an ordered "most specific first" chain of routes to try.
// Iteration order matters: the router walks it front to back.
type Hierarchy []Route

// Empty reports whether the hierarchy has no levels.
func (h Hierarchy) Empty() bool {
	return len(h) == 0
}

// Options are bit flags carried on a route registration.
type Options uint32

const (
	// None carries no flags.
	None Options = 0
	// LocalDispatchOnly restricts the route to the endpoint that
	// registered it: the router drops a match carrying this flag unless
	// the match's endpoint is the router's own local address.
	LocalDispatchOnly Options = 1 << iota
	// PublishOnly means the route may only be reached through publish
	// fan-out; p2p dispatch skips it.
	PublishOnly
)

// Has reports whether flag is set in o. Unknown bits are preserved but
// ignored by the router, per spec.md §3.
func (o Options) Has(flag Options) bool {
	return o&flag != 0
}

// Target is what a Route-Manager returns for a route: the endpoint that
// registered interest and the options it registered with.
type Target struct {
	Endpoint address.Address
	Options  Options
}
