package observability

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines the contract for metrics collection
type Metrics interface {
	// IncrementCounter increments a counter by one
	IncrementCounter(name string, tags map[string]string)
	// RecordHistogram records an observation (durations, sizes)
	RecordHistogram(name string, value float64, tags map[string]string)
	// SetGauge sets a gauge to the given value
	SetGauge(name string, value float64, tags map[string]string)
}

// PrometheusMetrics implements Metrics using the Prometheus client library.
// Metric vectors are created lazily on first use; the label set of the first
// call fixes the label keys for that metric name. Dotted metric names are
// converted to Prometheus snake_case and prefixed with the service name.
type PrometheusMetrics struct {
	mu          sync.Mutex
	serviceName string
	registry    *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	labelKeys  map[string][]string
}

// NewPrometheus creates a PrometheusMetrics backed by its own registry
func NewPrometheus(serviceName string) *PrometheusMetrics {
	return &PrometheusMetrics{
		serviceName: sanitizeName(serviceName),
		registry:    prometheus.NewRegistry(),
		counters:    make(map[string]*prometheus.CounterVec),
		histograms:  make(map[string]*prometheus.HistogramVec),
		gauges:      make(map[string]*prometheus.GaugeVec),
		labelKeys:   make(map[string][]string),
	}
}

// Handler returns an http.Handler serving the /metrics endpoint
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementCounter increments the named counter
func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fullName := m.fullName(name)
	vec, ok := m.counters[fullName]
	if !ok {
		vec = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fullName,
				Help: "Counter " + fullName,
			},
			m.keysFor(fullName, tags),
		)
		m.registry.MustRegister(vec)
		m.counters[fullName] = vec
	}
	vec.With(m.labelsFor(fullName, tags)).Inc()
}

// RecordHistogram records a value in the named histogram
func (m *PrometheusMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fullName := m.fullName(name)
	vec, ok := m.histograms[fullName]
	if !ok {
		vec = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    fullName,
				Help:    "Histogram " + fullName,
				Buckets: prometheus.DefBuckets,
			},
			m.keysFor(fullName, tags),
		)
		m.registry.MustRegister(vec)
		m.histograms[fullName] = vec
	}
	vec.With(m.labelsFor(fullName, tags)).Observe(value)
}

// SetGauge sets the named gauge
func (m *PrometheusMetrics) SetGauge(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fullName := m.fullName(name)
	vec, ok := m.gauges[fullName]
	if !ok {
		vec = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: fullName,
				Help: "Gauge " + fullName,
			},
			m.keysFor(fullName, tags),
		)
		m.registry.MustRegister(vec)
		m.gauges[fullName] = vec
	}
	vec.With(m.labelsFor(fullName, tags)).Set(value)
}

func (m *PrometheusMetrics) fullName(name string) string {
	return m.serviceName + "_" + sanitizeName(name)
}

// keysFor records and returns the label keys for a metric name.
// Must be called with the mutex held.
func (m *PrometheusMetrics) keysFor(fullName string, tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.labelKeys[fullName] = keys
	return keys
}

// labelsFor builds a label set matching the keys the metric was registered
// with; missing tags become empty values, extra tags are dropped.
func (m *PrometheusMetrics) labelsFor(fullName string, tags map[string]string) prometheus.Labels {
	labels := prometheus.Labels{}
	for _, k := range m.labelKeys[fullName] {
		labels[k] = tags[k]
	}
	return labels
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// NopMetrics discards everything. Useful in tests.
type NopMetrics struct{}

func (NopMetrics) IncrementCounter(string, map[string]string)         {}
func (NopMetrics) RecordHistogram(string, float64, map[string]string) {}
func (NopMetrics) SetGauge(string, float64, map[string]string)        {}
