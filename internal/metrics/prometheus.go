package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exports metrics through a Prometheus registry. Collectors are
// created lazily on first use and registered with the injected Registerer.
type PrometheusMetrics struct {
	namespace  string
	registry   prometheus.Registerer
	mu         sync.Mutex
	gauges     map[string]prometheus.Gauge
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics creates a PrometheusMetrics registering into registry.
// A nil registry falls back to prometheus.DefaultRegisterer.
func NewPrometheusMetrics(namespace string, registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		namespace:  namespace,
		registry:   registry,
		gauges:     make(map[string]prometheus.Gauge),
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (p *PrometheusMetrics) Initialize(ctx context.Context) error { return nil }
func (p *PrometheusMetrics) Flush(ctx context.Context) error      { return nil }
func (p *PrometheusMetrics) Shutdown(ctx context.Context) error   { return nil }

// UpdateGauge sets the named gauge.
func (p *PrometheusMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: p.namespace, Name: name})
		if err := p.register(name, g); err != nil {
			return err
		}
		p.gauges[name] = g
	}
	g.Set(value)
	return nil
}

// IncrementCounter adds value to the named counter.
func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{Namespace: p.namespace, Name: name + "_total"})
		if err := p.register(name, c); err != nil {
			return err
		}
		p.counters[name] = c
	}
	c.Add(float64(value))
	return nil
}

// RecordHistogram observes value in the named histogram.
func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		})
		if err := p.register(name, h); err != nil {
			return err
		}
		p.histograms[name] = h
	}
	h.Observe(value)
	return nil
}

func (p *PrometheusMetrics) register(name string, c prometheus.Collector) error {
	if err := p.registry.Register(c); err != nil {
		return fmt.Errorf("register metric %s: %w", name, err)
	}
	return nil
}
