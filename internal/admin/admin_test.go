package admin

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHealthzOK(t *testing.T) {
	reg := prometheus.NewRegistry()
	var log bytes.Buffer
	srv := New("127.0.0.1:0", reg, &log)

	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("GET /healthz body = %q, want %q", body, "ok")
	}
}

func TestMetricsServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter"})
	reg.MustRegister(counter)
	counter.Inc()

	var log bytes.Buffer
	srv := New("127.0.0.1:0", reg, &log)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("test_counter")) {
		t.Fatalf("GET /metrics body missing registered counter: %s", body)
	}
}

func TestListenAndServeShutsDownOnContextCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	var log bytes.Buffer
	srv := New("127.0.0.1:0", reg, &log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ListenAndServe() did not return after context cancellation")
	}
}
