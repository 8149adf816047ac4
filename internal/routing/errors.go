package routing

import "errors"

// ErrDisposed is returned when an operation targets an endpoint, cluster,
// or routing system that has already been disposed (spec.md §7, kind
// Disposed).
var ErrDisposed = errors.New("routing: disposed")

// ErrAlreadyPresent is returned by System.Create when an address already
// has a live cluster registered (spec.md §3: "one logical end-point per
// address in this process").
var ErrAlreadyPresent = errors.New("routing: address already present")
