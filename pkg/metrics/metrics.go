// Package metrics defines the Collector boundary the LSM tree host reports
// through, and a Prometheus-backed implementation of it.
package metrics

// Collector captures counters, gauges and histograms. Implementations
// integrate with whatever monitoring system the host is embedded in; see
// PrometheusCollector for the one this repository ships.
type Collector interface {
	IncCounter(name string, labels map[string]string, delta float64)
	SetGauge(name string, labels map[string]string, value float64)
	ObserveHistogram(name string, labels map[string]string, value float64)
}

// Noop discards everything. Useful when no monitoring system is wired up.
type Noop struct{}

func (Noop) IncCounter(string, map[string]string, float64)       {}
func (Noop) SetGauge(string, map[string]string, float64)         {}
func (Noop) ObserveHistogram(string, map[string]string, float64) {}
