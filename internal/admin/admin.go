// Package admin exposes the router's observability surface over HTTP:
// /healthz, /debug/vars (stdlib expvar, the way tinode/chat's hub.go
// publishes "LiveTopics" via expvar.Publish), and /metrics (Prometheus,
// via github.com/prometheus/client_golang/prometheus/promhttp — a direct
// teacher dependency the filtered pack's files never wired into an actual
// listener). Request logging wraps the mux with
// github.com/gorilla/handlers.CombinedLoggingHandler, also a direct
// teacher dependency (go.mod).
package admin

import (
	"context"
	"expvar"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the admin HTTP surface.
type Server struct {
	httpServer *http.Server
}

// New builds an admin server listening on addr. reg is the Prometheus
// registerer metrics were registered against (see internal/metrics);
// accessLog receives Apache-combined-format request logs, the way
// tinode/chat wraps its own HTTP listener.
func New(addr string, reg prometheus.Gatherer, accessLog io.Writer) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	logged := handlers.CombinedLoggingHandler(accessLog, mux)

	return &Server{httpServer: &http.Server{Addr: addr, Handler: logged}}
}

// ListenAndServe blocks serving the admin surface until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
