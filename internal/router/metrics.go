package router

// Metrics receives router-level counters. It is satisfied by
// internal/metrics.Collector (Prometheus-backed); a nil Metrics is valid
// and simply means "don't record."
type Metrics interface {
	IncRouted(route string)
	IncP2PAttempt()
	ObservePublishFanout(n int)
	IncDisposedEndpoint()
}

type noopMetrics struct{}

func (noopMetrics) IncRouted(string) {}
func (noopMetrics) IncP2PAttempt() {}
func (noopMetrics) ObservePublishFanout(n int) {}
func (noopMetrics) IncDisposedEndpoint() {}
