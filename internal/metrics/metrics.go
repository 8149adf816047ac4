// Package metrics wires the message router's counters onto Prometheus,
// the way tinode/chat exposes `topicsLive` via stdlib expvar in hub.go —
// except this repo's teacher dependency list already names
// github.com/prometheus/client_golang directly, so the "real" metrics
// surface uses that instead of expvar.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements router.Metrics.
type Collector struct {
	routed          *prometheus.CounterVec
	p2pAttempts     prometheus.Counter
	publishFanout   prometheus.Histogram
	disposedSends   prometheus.Counter
}

// NewCollector builds and registers a Collector against reg. Pass
// prometheus.NewRegistry() for isolated tests, or
// prometheus.DefaultRegisterer for a process-wide daemon.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routefabric",
			Name:      "messages_routed_total",
			Help:      "Number of RouteAsync dispatch attempts, labeled by route.",
		}, []string{"route"}),
		p2pAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routefabric",
			Name:      "p2p_attempts_total",
			Help:      "Number of p2p candidate endpoints tried.",
		}),
		publishFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routefabric",
			Name:      "publish_fanout_size",
			Help:      "Number of endpoints a single publish dispatch fanned out to, per route level.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		disposedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routefabric",
			Name:      "disposed_sends_total",
			Help:      "Number of sends that failed because the sending endpoint was disposed.",
		}),
	}
	reg.MustRegister(c.routed, c.p2pAttempts, c.publishFanout, c.disposedSends)
	return c
}

func (c *Collector) IncRouted(route string) { c.routed.WithLabelValues(route).Inc() }
func (c *Collector) IncP2PAttempt() { c.p2pAttempts.Inc() }
func (c *Collector) ObservePublishFanout(n int) { c.publishFanout.Observe(float64(n)) }
func (c *Collector) IncDisposedEndpoint() { c.disposedSends.Inc() }
