package router

import (
	"context"
	"testing"
	"time"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/route"
	"github.com/kprice/routefabric/internal/routemanager"
	"github.com/kprice/routefabric/internal/routing"
)

// countingManager wraps an InMemory manager to count GetRoutes calls, so
// tests can assert the router never touches it for an empty hierarchy.
type countingManager struct {
	*routemanager.InMemory
	getRoutesCalls int
}

func (m *countingManager) GetRoutes(ctx context.Context, r route.Route) ([]route.Target, error) {
	m.getRoutesCalls++
	return m.InMemory.GetRoutes(ctx, r)
}

func newTestRouter(t *testing.T, sys *routing.System, manager routemanager.Manager, addr address.Address, handler Handler) *Router {
	t.Helper()
	ep, err := sys.Create(addr)
	if err != nil {
		t.Fatalf("sys.Create(%q) error = %v", addr, err)
	}
	r := New(handler, ep, manager)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Close(ctx)
	})
	return r
}

func TestRouteAsyncLocalShortCircuit(t *testing.T) {
	sys := routing.New(nil)
	manager := routemanager.NewInMemory()

	handlerCalled := make(chan bool, 1)
	r := newTestRouter(t, sys, manager, "caller", HandlerFunc(func(
		_ context.Context,
		rm message.RouteMessage[message.DispatchData],
		rt route.Route,
		publish, localDispatch bool,
		remoteScope, localScope address.Scope,
	) message.HandleResult {
		handlerCalled <- localDispatch
		return message.Handled(message.RouteMessage[message.DispatchResult]{Val: message.DispatchResult{"ok": true}})
	}))

	scope := r.CreateScope()
	result, err := r.RouteAsync(context.Background(), "orders.created",
		message.RouteMessage[message.DispatchData]{Msg: message.New(nil), Val: message.DispatchData{}},
		false, scope, scope)
	if err != nil {
		t.Fatalf("RouteAsync() error = %v", err)
	}
	if result.Val["ok"] != true {
		t.Fatalf("RouteAsync() = %v, want the handler's own result", result)
	}

	select {
	case local := <-handlerCalled:
		if !local {
			t.Fatalf("expected localDispatch=true for a route-compatible scope pair")
		}
	case <-time.After(time.Second):
		t.Fatalf("handler was never invoked")
	}
}

func TestRouteAsyncRejectsZeroRemoteScope(t *testing.T) {
	sys := routing.New(nil)
	manager := routemanager.NewInMemory()
	r := newTestRouter(t, sys, manager, "caller", HandlerFunc(func(
		context.Context, message.RouteMessage[message.DispatchData], route.Route, bool, bool, address.Scope, address.Scope,
	) message.HandleResult {
		return message.Unhandled
	}))

	_, err := r.RouteAsync(context.Background(), "orders.created",
		message.RouteMessage[message.DispatchData]{Msg: message.New(nil), Val: message.DispatchData{}},
		false, address.NoScope, address.NoScope)
	if err != ErrInvalidScope {
		t.Fatalf("RouteAsync() with a zero remote scope error = %v, want ErrInvalidScope", err)
	}
}

func TestRouteHierarchyEmptyNeverTouchesManager(t *testing.T) {
	sys := routing.New(nil)
	manager := &countingManager{InMemory: routemanager.NewInMemory()}
	r := newTestRouter(t, sys, manager, "caller", HandlerFunc(func(
		context.Context, message.RouteMessage[message.DispatchData], route.Route, bool, bool, address.Scope, address.Scope,
	) message.HandleResult {
		return message.Unhandled
	}))

	results, err := r.RouteHierarchy(context.Background(), nil,
		message.RouteMessage[message.DispatchData]{Msg: message.New(nil), Val: message.DispatchData{}},
		false, address.NoScope)
	if err != nil {
		t.Fatalf("RouteHierarchy() error = %v", err)
	}
	if results != nil {
		t.Fatalf("RouteHierarchy(empty hierarchy) = %v, want nil", results)
	}
	if manager.getRoutesCalls != 0 {
		t.Fatalf("RouteHierarchy(empty hierarchy) touched the route manager %d times", manager.getRoutesCalls)
	}
}
