// Package router implements the message router (component F of spec.md
// §2): the state machine that decodes inbound frames, matches routes,
// orders candidate end-points, enforces local-dispatch short-circuits,
// and orchestrates point-to-point and publish fan-out with
// partial-failure aggregation. It is grounded on tinode/chat's hub.go
// receive loop (one long-lived goroutine per mailbox, fire-and-forget
// per-message handling) generalized from "route to a Topic" to "route to
// whatever the route manager resolves."
package router

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/receiveresult"
	"github.com/kprice/routefabric/internal/route"
	"github.com/kprice/routefabric/internal/routemanager"
	"github.com/kprice/routefabric/internal/routing"
)

// Router runs one receive loop bound to a local end-point, decodes
// inbound routing frames, and dispatches outbound sends per spec.md §4.F.
type Router struct {
	handler Handler
	local   *routing.Endpoint
	manager routemanager.Manager
	metrics Metrics

	seq int64 // atomic, monotonically increasing scope sequence

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // tracks in-flight per-message handler goroutines
}

// Option configures a Router at construction.
type Option func(*Router)

// WithMetrics attaches a Metrics sink (see internal/metrics.Collector). A
// nil m leaves the no-op default in place.
func WithMetrics(m Metrics) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New constructs a Router bound to local and spawns its receive loop
// (spec.md §4.F "Construction").
func New(handler Handler, local *routing.Endpoint, manager routemanager.Manager, opts ...Option) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		handler: handler,
		local:   local,
		manager: manager,
		metrics: noopMetrics{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(r)
	}
	go r.receiveLoop()
	return r
}

// LocalAddress returns the address this router's endpoint is bound to.
func (r *Router) LocalAddress() address.Address {
	return r.local.Address()
}

// receiveLoop implements spec.md §4.F.2: pop the next receive-result and
// spawn a detached handler for it, forever, until cancelled. Exceptions
// from Receive itself (other than cooperative cancellation) are logged
// and the loop continues — a transient transport fault must not kill the
// router.
func (r *Router) receiveLoop() {
	for {
		rr, err := r.local.Receive(r.ctx)
		if err != nil {
			if errors.Is(err, routing.ErrDisposed) || r.ctx.Err() != nil {
				return
			}
			log.Printf("router[%s]: receive error: %v", r.local.Address(), err)
			continue
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Printf("router[%s]: handler panic recovered: %v", r.local.Address(), p)
				}
			}()
			r.handleReceived(rr)
		}()
	}
}

// handleReceived implements spec.md §4.F.3.
func (r *Router) handleReceived(rr *receiveresult.ReceiveResult) {
	linked, cancel := linkContexts(r.ctx, rr.Cancel)
	defer cancel()

	top, err := rr.Msg.Pop()
	if err != nil {
		log.Printf("router[%s]: malformed message, no routing frame: %v", r.local.Address(), err)
		rr.SendAck()
		return
	}
	frame, err := message.DecodeFrame(top)
	if err != nil {
		log.Printf("router[%s]: malformed frame: %v", r.local.Address(), err)
		rr.SendAck()
		return
	}
	if frame.LocalScope.Address != r.local.Address() {
		log.Printf("router[%s]: frame local-scope address %q does not match local address",
			r.local.Address(), frame.LocalScope.Address)
		rr.SendAck()
		return
	}

	data := decodeDispatchData(rr.Msg)
	rm := message.RouteMessage[message.DispatchData]{Msg: rr.Msg, Val: data}

	result := r.handler.Handle(linked, rm, frame.Route, frame.Publish, frame.LocalDispatch, frame.RemoteScope, frame.LocalScope)

	select {
	case <-rr.Cancel.Done():
		rr.SendCancellation()
		return
	default:
	}

	if !result.Handled && result.RouteMessage.IsDefault() {
		rr.SendAck()
		return
	}
	rr.SendResult(result)
}

// linkContexts builds a context cancelled when either parent is done
// (spec.md §5 "Each receive-result handoff links (caller-token,
// receive-result.cancellation)").
func linkContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	linked, cancel := context.WithCancel(a)
	stop := make(chan struct{})
	go func() {
		select {
		case <-b.Done():
			cancel()
		case <-stop:
		}
	}()
	return linked, func() {
		close(stop)
		cancel()
	}
}

// CreateScope allocates (local-address, local-cluster-node-id, ++seq)
// atomically (spec.md §4.F.6).
func (r *Router) CreateScope() address.Scope {
	seq := atomic.AddInt64(&r.seq, 1)
	return address.Scope{Address: r.local.Address(), Node: r.local.Node(), Seq: seq}
}

// OwnsScope reports whether scope identifies this router's own local
// endpoint.
func (r *Router) OwnsScope(scope address.Scope) bool {
	return scope.Address == r.local.Address() && scope.Node == r.local.Node()
}

// RegisterRoute forwards to the route manager under the router's local
// address.
func (r *Router) RegisterRoute(ctx context.Context, rt route.Route, opts route.Options) error {
	return r.manager.AddRoute(ctx, r.local.Address(), rt, opts)
}

// UnregisterRoute forwards to the route manager.
func (r *Router) UnregisterRoute(ctx context.Context, rt route.Route) error {
	return r.manager.RemoveRoute(ctx, r.local.Address(), rt)
}

// UnregisterAll forwards to the route manager.
func (r *Router) UnregisterAll(ctx context.Context, includePersistent bool) error {
	return r.manager.RemoveRoutes(ctx, r.local.Address(), includePersistent)
}

// RouteAsync dispatches a single-target request, per spec.md §4.F.4.
//
// Preconditions: remoteScope must not be the zero value. If localScope is
// the zero value, this router's own scope is substituted.
//
// If localScope is route-compatible with remoteScope, the message is
// delivered locally by invoking the registered handler directly, with the
// scopes reversed (we are now acting as the receiver). Otherwise the
// frame is encoded and sent across the local endpoint to remoteScope; the
// handled bit of the result is ignored here, since a caller of this
// single-target overload already knows it addressed exactly one
// end-point.
func (r *Router) RouteAsync(
	ctx context.Context,
	rt route.Route,
	rm message.RouteMessage[message.DispatchData],
	publish bool,
	remoteScope address.Scope,
	localScope address.Scope,
) (message.RouteMessage[message.DispatchResult], error) {
	result, err := r.routeAsyncInternal(ctx, rt, rm, publish, remoteScope, localScope)
	return result.RouteMessage, err
}

// routeAsyncInternal is RouteAsync's implementation, additionally
// exposing the Handled bit for the hierarchy-level fan-out in
// routehierarchy.go, which needs it to decide whether to stop early.
func (r *Router) routeAsyncInternal(
	ctx context.Context,
	rt route.Route,
	rm message.RouteMessage[message.DispatchData],
	publish bool,
	remoteScope address.Scope,
	localScope address.Scope,
) (message.HandleResult, error) {
	if remoteScope.IsNoScope() {
		return message.HandleResult{}, ErrInvalidScope
	}
	if localScope.IsNoScope() {
		localScope = r.CreateScope()
	}

	r.metrics.IncRouted(string(rt))

	localDispatch := localScope.RouteCompatible(remoteScope)
	if localDispatch {
		// Short-circuit: never touches the transport (spec.md boundary
		// behavior). Scopes are reversed because we are now the
		// receiver: what the caller called "local" is the receiver's
		// remote, and vice versa.
		return r.handler.Handle(ctx, rm, rt, publish, true, localScope, remoteScope), nil
	}

	frame := message.Frame{
		Publish:       publish,
		LocalDispatch: false,
		RemoteScope:   remoteScope,
		LocalScope:    localScope,
		Route:         rt,
	}

	outMsg := rm.Msg.Clone()
	encodeDispatchData(outMsg, rm.Val)
	outMsg.Push(message.EncodeFrame(frame))

	result, err := r.local.Send(ctx, outMsg, remoteScope.Address, remoteScope.Node)
	if err != nil {
		if errors.Is(err, routing.ErrDisposed) {
			r.metrics.IncDisposedEndpoint()
			return message.HandleResult{}, ErrDisposed
		}
		return message.HandleResult{}, err
	}
	return result, nil
}

// Close terminates the receive loop, waits (until ctx is done) for
// handler goroutines already spawned to return, disposes the local
// endpoint, and tells the route manager to forget this address
// (spec.md §4.F.7).
func (r *Router) Close(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	r.local.Dispose()
	return r.manager.RemoveRoutes(ctx, r.local.Address(), false)
}

// encodeDispatchData pushes a gob-encoded dispatch-data frame onto msg.
// Payload serialization is explicitly out of scope for the routing
// fabric's core (spec.md §1); gob is used here only as the baseline
// default codec for the in-process remote path so a round trip actually
// carries the caller's dispatch data. Callers that store custom concrete
// types inside a DispatchData/DispatchResult map must gob.Register those
// types themselves — gob needs the concrete type registered to decode
// into an interface{} field, and the fabric doesn't know those types.
func encodeDispatchData(msg *message.Message, data message.DispatchData) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(data); err != nil {
		// A nil/empty map always encodes; this only fails for values the
		// caller put in DispatchData that gob can't represent (e.g. an
		// unregistered concrete type in an interface{} field). Push an
		// empty frame rather than silently dropping the call site's
		// intent.
		log.Printf("router: dispatch data encode failed: %v", err)
		msg.Push(nil)
		return
	}
	msg.Push(buf.Bytes())
}

func decodeDispatchData(msg *message.Message) message.DispatchData {
	top, err := msg.Pop()
	if err != nil {
		return nil
	}
	if len(top) == 0 {
		return message.DispatchData{}
	}
	var data message.DispatchData
	dec := gob.NewDecoder(bytes.NewReader(top))
	if err := dec.Decode(&data); err != nil {
		log.Printf("router: dispatch data decode failed: %v", err)
		return message.DispatchData{}
	}
	return data
}
