package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorIncrementsRoutedByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncRouted("orders.created")
	c.IncRouted("orders.created")
	c.IncRouted("orders.updated")

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var created *dto.Metric
	for _, mf := range metricFamilies {
		if mf.GetName() != "routefabric_messages_routed_total" {
			continue
		}
		for _, m := range mf.Metric {
			for _, l := range m.Label {
				if l.GetName() == "route" && l.GetValue() == "orders.created" {
					created = m
				}
			}
		}
	}
	if created == nil {
		t.Fatalf("expected a routed_total series labeled route=orders.created")
	}
	if got := created.Counter.GetValue(); got != 2 {
		t.Fatalf("routed_total{route=orders.created} = %v, want 2", got)
	}
}

func TestCollectorImplementsAllCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// Exercise every method; a panic here would mean a nil metric was
	// registered incorrectly.
	c.IncP2PAttempt()
	c.ObservePublishFanout(3)
	c.IncDisposedEndpoint()
}
