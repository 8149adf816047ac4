package router

import "errors"

// Error kinds named in spec.md §7. Disposed maps onto internal/routing's
// own sentinel; Soft-Unavailable is not an error at all (a default
// HandleResult with a nil error). ErrInvalidScope is specific to this
// package.
var (
	// ErrDisposed mirrors routing.ErrDisposed for callers that only
	// import this package.
	ErrDisposed = errors.New("router: disposed")

	// ErrInvalidScope is returned when RouteAsync is called with a
	// remote scope equal to the zero value (spec.md §4.F.4
	// precondition: "remote-scope != default").
	ErrInvalidScope = errors.New("router: remote scope must not be the zero value")
)
