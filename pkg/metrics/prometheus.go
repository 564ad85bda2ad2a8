package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector backs Collector with real prometheus.CounterVec,
// GaugeVec, and HistogramVec instruments, registered against reg. Vecs are
// created lazily on first use, keyed by metric name and the sorted set of
// label keys seen for that name, generalized from a fixed struct of named
// metrics to the free-form name/labels Collector contract.
type PrometheusCollector struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector builds a collector that registers its instruments
// against reg. Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer's underlying registry to expose metrics on
// the process-wide /metrics endpoint.
func NewPrometheusCollector(reg *prometheus.Registry) *PrometheusCollector {
	return &PrometheusCollector{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// vecKey is the cache key for a metric name plus its sorted label keys.
// Prometheus still refuses a second label set under an already registered
// name, so MustRegister panics for one.
func vecKey(name string, keys []string) string {
	return name + "{" + strings.Join(keys, ",") + "}"
}

func (c *PrometheusCollector) counterVec(name string, labels map[string]string) *prometheus.CounterVec {
	keys := labelKeys(labels)
	key := vecKey(name, keys)

	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.counters[key]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, keys)
		c.reg.MustRegister(vec)
		c.counters[key] = vec
	}
	return vec
}

func (c *PrometheusCollector) gaugeVec(name string, labels map[string]string) *prometheus.GaugeVec {
	keys := labelKeys(labels)
	key := vecKey(name, keys)

	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.gauges[key]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, keys)
		c.reg.MustRegister(vec)
		c.gauges[key] = vec
	}
	return vec
}

func (c *PrometheusCollector) histogramVec(name string, labels map[string]string) *prometheus.HistogramVec {
	keys := labelKeys(labels)
	key := vecKey(name, keys)

	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.histograms[key]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, keys)
		c.reg.MustRegister(vec)
		c.histograms[key] = vec
	}
	return vec
}

func (c *PrometheusCollector) IncCounter(name string, labels map[string]string, delta float64) {
	c.counterVec(name, labels).With(labels).Add(delta)
}

func (c *PrometheusCollector) SetGauge(name string, labels map[string]string, value float64) {
	c.gaugeVec(name, labels).With(labels).Set(value)
}

func (c *PrometheusCollector) ObserveHistogram(name string, labels map[string]string, value float64) {
	c.histogramVec(name, labels).With(labels).Observe(value)
}
