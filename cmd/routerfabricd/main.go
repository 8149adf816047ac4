// Command routerfabricd is a reference host for the routing fabric: it
// wires a Routing-System, an in-memory route manager, and a Router-Factory
// together, optionally exposes the admin HTTP surface and a cluster
// transport bridge, and shuts down on SIGINT/SIGTERM/SIGHUP the way
// tinode/chat's server/shutdown.go does.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/admin"
	"github.com/kprice/routefabric/internal/bridge"
	"github.com/kprice/routefabric/internal/bridge/wsbridge"
	"github.com/kprice/routefabric/internal/config"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/metrics"
	"github.com/kprice/routefabric/internal/route"
	"github.com/kprice/routefabric/internal/router"
	"github.com/kprice/routefabric/internal/routemanager"
	"github.com/kprice/routefabric/internal/routing"
)

func main() {
	peersFile := flag.String("peers", "", "path to a JSON-with-comments peer directory for the cluster bridge")
	withAdmin := flag.Bool("admin", true, "serve the admin HTTP surface")
	withBridge := flag.Bool("bridge", false, "serve the websocket cluster transport bridge")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("routerfabricd: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go awaitSignal(cancel)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	genID, err := routing.SnowflakeIDGenerator(cfg.SnowflakeWorkerID)
	if err != nil {
		log.Fatalf("routerfabricd: node id generator: %v", err)
	}
	sys := routing.New(genID)
	manager := routemanager.NewInMemory()

	factory := router.NewFactory(sys, manager, collector, address.Address(cfg.DefaultAddress))

	echoHandler := router.HandlerFunc(func(
		_ context.Context,
		rm message.RouteMessage[message.DispatchData],
		rt route.Route,
		publish bool,
		localDispatch bool,
		remoteScope, localScope address.Scope,
	) message.HandleResult {
		log.Printf("routerfabricd: dispatch on %q (publish=%v local=%v) from %s to %s",
			rt, publish, localDispatch, remoteScope, localScope)
		return message.Handled(message.RouteMessage[message.DispatchResult]{
			Msg: rm.Msg,
			Val: message.DispatchResult{"ok": true},
		})
	})

	rtr, err := factory.NewDefault(echoHandler)
	if err != nil {
		log.Fatalf("routerfabricd: build default router: %v", err)
	}
	defer rtr.Close(context.Background())

	if *withBridge {
		transport := wsbridge.New(cfg.BridgeListenAddr)
		br := bridge.New(transport, sys)
		if *peersFile != "" {
			peers, err := config.LoadPeers(*peersFile)
			if err != nil {
				log.Fatalf("routerfabricd: load peers: %v", err)
			}
			for _, p := range peers.Entries {
				br.RegisterPeer(address.Address(p.Address), p.Peer)
			}
		}
		go func() {
			if err := br.Serve(ctx); err != nil && ctx.Err() == nil {
				log.Printf("routerfabricd: bridge serve: %v", err)
			}
		}()
		defer br.Close()
	}

	if *withAdmin {
		adminSrv := admin.New(cfg.AdminAddr, reg, os.Stderr)
		go func() {
			if err := adminSrv.ListenAndServe(ctx); err != nil {
				log.Printf("routerfabricd: admin surface: %v", err)
			}
		}()
	}

	log.Printf("routerfabricd: default router ready at %q", rtr.LocalAddress())
	<-ctx.Done()
	log.Printf("routerfabricd: shutting down")
}

func awaitSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigCh
	log.Printf("routerfabricd: signal received: %s", sig)
	cancel()
}
