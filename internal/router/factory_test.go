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

func noopHandler() Handler {
	return HandlerFunc(func(
		context.Context, message.RouteMessage[message.DispatchData], route.Route, bool, bool, address.Scope, address.Scope,
	) message.HandleResult {
		return message.Unhandled
	})
}

func TestFactoryNewBindsGivenAddress(t *testing.T) {
	sys := routing.New(nil)
	manager := routemanager.NewInMemory()
	f := NewFactory(sys, manager, nil, "default")

	r, err := f.New("orders", noopHandler())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeRouter(t, r)

	if r.LocalAddress() != "orders" {
		t.Fatalf("LocalAddress() = %q, want %q", r.LocalAddress(), "orders")
	}
}

func TestFactoryNewDefaultUsesConfiguredAddress(t *testing.T) {
	sys := routing.New(nil)
	manager := routemanager.NewInMemory()
	f := NewFactory(sys, manager, nil, "default-address")

	r, err := f.NewDefault(noopHandler())
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	defer closeRouter(t, r)

	if r.LocalAddress() != "default-address" {
		t.Fatalf("LocalAddress() = %q, want %q", r.LocalAddress(), "default-address")
	}
}

func TestFactoryNewRejectsDuplicateAddress(t *testing.T) {
	sys := routing.New(nil)
	manager := routemanager.NewInMemory()
	f := NewFactory(sys, manager, nil, "default")

	r, err := f.New("orders", noopHandler())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeRouter(t, r)

	if _, err := f.New("orders", noopHandler()); err != routing.ErrAlreadyPresent {
		t.Fatalf("New() on a duplicate address error = %v, want routing.ErrAlreadyPresent", err)
	}
}

func closeRouter(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = r.Close(ctx)
}
