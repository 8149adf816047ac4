package router

import (
	"context"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/route"
)

// Handler is the route-message-handler contract the router invokes for
// every decoded inbound message and every locally short-circuited send
// (spec.md §6). Implementations must not block indefinitely; ctx carries
// the linked cancellation described in spec.md §5.
type Handler interface {
	Handle(
		ctx context.Context,
		rm message.RouteMessage[message.DispatchData],
		r route.Route,
		publish bool,
		localDispatch bool,
		remoteScope address.Scope,
		localScope address.Scope,
	) message.HandleResult
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(
	ctx context.Context,
	rm message.RouteMessage[message.DispatchData],
	r route.Route,
	publish bool,
	localDispatch bool,
	remoteScope address.Scope,
	localScope address.Scope,
) message.HandleResult

func (f HandlerFunc) Handle(
	ctx context.Context,
	rm message.RouteMessage[message.DispatchData],
	r route.Route,
	publish bool,
	localDispatch bool,
	remoteScope address.Scope,
	localScope address.Scope,
) message.HandleResult {
	return f(ctx, rm, r, publish, localDispatch, remoteScope, localScope)
}
