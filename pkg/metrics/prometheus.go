package metrics

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements Collector on top of a private prometheus
// Registry, creating a CounterVec/GaugeVec/HistogramVec per metric name the
// first time it is used. Every call for a given name must pass the same set
// of label keys — that set becomes the vec's label names.
type PrometheusCollector struct {
	reg        *prometheus.Registry
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	buckets    []float64
}

// NewPrometheusCollector creates a collector with its own Registry, so tests
// and multiple node instances in one process never collide over the global
// default registry. buckets configures every histogram this collector
// creates; a nil buckets falls back to prometheus.DefBuckets.
func NewPrometheusCollector(buckets []float64) *PrometheusCollector {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return &PrometheusCollector{
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		buckets:    buckets,
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

func (c *PrometheusCollector) IncCounter(name string, labels map[string]string, delta float64) {
	c.mu.Lock()
	cv, ok := c.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labelKeys(labels))
		c.counters[name] = cv
		c.reg.MustRegister(cv)
	}
	c.mu.Unlock()
	cv.With(labels).Add(delta)
}

func (c *PrometheusCollector) SetGauge(name string, labels map[string]string, value float64) {
	c.mu.Lock()
	gv, ok := c.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labelKeys(labels))
		c.gauges[name] = gv
		c.reg.MustRegister(gv)
	}
	c.mu.Unlock()
	gv.With(labels).Set(value)
}

func (c *PrometheusCollector) ObserveHistogram(name string, labels map[string]string, value float64) {
	c.mu.Lock()
	hv, ok := c.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name, Buckets: c.buckets}, labelKeys(labels))
		c.histograms[name] = hv
		c.reg.MustRegister(hv)
	}
	c.mu.Unlock()
	hv.With(labels).Observe(value)
}

// Handler exposes this collector's registry for Prometheus scraping.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
