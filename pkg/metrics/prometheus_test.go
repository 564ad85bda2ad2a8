package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.IncCounter("flush_total", map[string]string{"shard": "0"}, 1)
	c.IncCounter("flush_total", map[string]string{"shard": "0"}, 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	var got *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "flush_total" {
			got = f
		}
	}
	if got == nil {
		t.Fatal("flush_total metric family not found")
	}
	if len(got.Metric) != 1 {
		t.Fatalf("expected 1 metric series, got %d", len(got.Metric))
	}
	if v := got.Metric[0].GetCounter().GetValue(); v != 3 {
		t.Fatalf("flush_total = %v, want 3", v)
	}
}

func TestPrometheusCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.SetGauge("table_count", map[string]string{"shard": "0"}, 7)
	c.SetGauge("table_count", map[string]string{"shard": "0"}, 9)

	families, _ := reg.Gather()
	var got float64
	for _, f := range families {
		if f.GetName() == "table_count" {
			got = f.Metric[0].GetGauge().GetValue()
		}
	}
	if got != 9 {
		t.Fatalf("table_count = %v, want 9", got)
	}
}
