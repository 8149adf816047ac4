package router

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/route"
)

// RouteHierarchy dispatches rm across a route hierarchy, per spec.md
// §4.F.5 — the fan-out core. It walks the hierarchy in order; in p2p mode
// it tries candidates within each route level from most-specific
// (last-registered) to least, stopping at the first handled=true; in
// publish mode it fans every match out concurrently and aggregates every
// handled=true result, across the whole hierarchy, without stopping
// early.
//
// An empty hierarchy returns an empty result without touching the route
// manager (spec.md §8 boundary behavior).
func (r *Router) RouteHierarchy(
	ctx context.Context,
	hier route.Hierarchy,
	rm message.RouteMessage[message.DispatchData],
	publish bool,
	localScope address.Scope,
) ([]message.RouteMessage[message.DispatchResult], error) {
	if hier.Empty() {
		return nil, nil
	}
	if localScope.IsNoScope() {
		localScope = r.CreateScope()
	}

	if publish {
		return r.routePublish(ctx, hier, rm, localScope)
	}
	return r.routeP2P(ctx, hier, rm, localScope)
}

func (r *Router) routeP2P(
	ctx context.Context,
	hier route.Hierarchy,
	rm message.RouteMessage[message.DispatchData],
	localScope address.Scope,
) ([]message.RouteMessage[message.DispatchResult], error) {
	var lastNonSuccessful message.RouteMessage[message.DispatchResult]
	haveLastNonSuccessful := false

	for _, rt := range hier {
		matches, err := r.manager.GetRoutes(ctx, rt)
		if err != nil {
			return nil, err
		}
		matches = filterLocalDispatchOnly(matches, r.LocalAddress())
		if len(matches) == 0 {
			continue
		}

		// Reverse iteration: the route table is assumed most-general
		// first per route level; trying last-to-first gives
		// most-specific-wins (spec.md §4.F.5, §9 — this ordering
		// assumption is not guaranteed by the route-manager interface,
		// only observed behavior this router relies on).
		for i := len(matches) - 1; i >= 0; i-- {
			m := matches[i]
			if m.Endpoint.IsUnknown() {
				continue
			}
			if m.Options.Has(route.PublishOnly) {
				continue
			}
			r.metrics.IncP2PAttempt()

			remoteScope := address.Scope{Address: m.Endpoint, Node: address.Default}
			res, err := r.routeAsyncInternal(ctx, rt, rm, false, remoteScope, localScope)
			if err != nil {
				return nil, err
			}
			if res.Handled {
				return []message.RouteMessage[message.DispatchResult]{res.RouteMessage}, nil
			}
			lastNonSuccessful = res.RouteMessage
			haveLastNonSuccessful = true
		}
	}

	if haveLastNonSuccessful {
		return []message.RouteMessage[message.DispatchResult]{lastNonSuccessful}, nil
	}
	return nil, nil
}

func (r *Router) routePublish(
	ctx context.Context,
	hier route.Hierarchy,
	rm message.RouteMessage[message.DispatchData],
	localScope address.Scope,
) ([]message.RouteMessage[message.DispatchResult], error) {
	handledEndpoints := make(map[address.Address]struct{})

	eg, egCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var results []message.RouteMessage[message.DispatchResult]
	anySpawned := false

	for _, rt := range hier {
		matches, err := r.manager.GetRoutes(ctx, rt)
		if err != nil {
			return nil, err
		}
		matches = filterLocalDispatchOnly(matches, r.LocalAddress())

		fresh := matches[:0:0]
		for _, m := range matches {
			if _, seen := handledEndpoints[m.Endpoint]; seen {
				continue
			}
			fresh = append(fresh, m)
		}
		if len(fresh) == 0 {
			continue
		}
		for _, m := range fresh {
			handledEndpoints[m.Endpoint] = struct{}{}
		}

		r.metrics.ObservePublishFanout(len(fresh))

		for _, m := range fresh {
			m := m
			rt := rt
			anySpawned = true
			eg.Go(func() error {
				remoteScope := address.Scope{Address: m.Endpoint, Node: address.Default}
				res, err := r.routeAsyncInternal(egCtx, rt, rm, true, remoteScope, localScope)
				if err != nil {
					// Publish mode silently drops failed or unhandled
					// results (spec.md §4.F.5); only a route-manager
					// fault (handled above, before spawning) aborts the
					// whole call.
					return nil
				}
				if res.Handled {
					mu.Lock()
					results = append(results, res.RouteMessage)
					mu.Unlock()
				}
				return nil
			})
		}
	}

	if !anySpawned {
		return nil, nil
	}
	_ = eg.Wait()
	return results, nil
}

// filterLocalDispatchOnly drops any match carrying LocalDispatchOnly
// unless the match's endpoint is the router's own local address
// (spec.md §4.F.5 step 2, applied in both dispatch modes).
func filterLocalDispatchOnly(matches []route.Target, local address.Address) []route.Target {
	out := matches[:0:0]
	for _, m := range matches {
		if m.Options.Has(route.LocalDispatchOnly) && m.Endpoint != local {
			continue
		}
		out = append(out, m)
	}
	return out
}
