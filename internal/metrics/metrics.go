// Package metrics records operational metrics of the pool engine.
//
// Engine code talks to a Collection, which forwards every call to the configured
// backends. Two backends ship with the package: LogMetrics keeps running totals
// and writes them through slog on Flush, PrometheusMetrics exports them to a
// Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
)

// Metrics is a metrics backend.
type Metrics interface {
	// Initialize prepares the backend before the first update.
	Initialize(ctx context.Context) error

	// Flush reports buffered values.
	Flush(ctx context.Context) error

	// Shutdown releases the backend.
	Shutdown(ctx context.Context) error

	// UpdateGauge sets a value that can go up or down, like the number of open pools.
	UpdateGauge(ctx context.Context, name string, value float64) error

	// IncrementCounter adds to a monotonic total, like swaps processed.
	IncrementCounter(ctx context.Context, name string, value uint64) error

	// RecordHistogram adds an observation, like an operation latency.
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// Collection forwards calls to every registered backend. A failing backend does
// not stop the others; their errors are joined.
type Collection struct {
	mu       sync.RWMutex
	backends []Metrics
}

// NewCollection creates a Collection over backends.
func NewCollection(backends ...Metrics) *Collection {
	return &Collection{backends: backends}
}

// Add registers another backend.
func (c *Collection) Add(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends = append(c.backends, m)
}

// Len returns the number of backends.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.backends)
}

func (c *Collection) each(fn func(Metrics) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, m := range c.backends {
		if err := fn(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Collection) Initialize(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Initialize(ctx) })
}

func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

func (c *Collection) Shutdown(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Shutdown(ctx) })
}

func (c *Collection) UpdateGauge(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.UpdateGauge(ctx, name, value) })
}

func (c *Collection) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

func (c *Collection) RecordHistogram(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

// NoopMetrics discards everything. Embed it to implement only some methods.
type NoopMetrics struct{}

func (NoopMetrics) Initialize(context.Context) error                       { return nil }
func (NoopMetrics) Flush(context.Context) error                            { return nil }
func (NoopMetrics) Shutdown(context.Context) error                         { return nil }
func (NoopMetrics) UpdateGauge(context.Context, string, float64) error     { return nil }
func (NoopMetrics) IncrementCounter(context.Context, string, uint64) error { return nil }
func (NoopMetrics) RecordHistogram(context.Context, string, float64) error { return nil }

// Summary aggregates the observations of one histogram.
type Summary struct {
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func (s *Summary) observe(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
}

// Snapshot is a point-in-time copy of a LogMetrics backend.
type Snapshot struct {
	Gauges     map[string]float64 `json:"gauges"`
	Counters   map[string]uint64  `json:"counters"`
	Histograms map[string]Summary `json:"histograms"`
}

// LogMetrics keeps running totals in memory and logs them on Flush.
type LogMetrics struct {
	logger *slog.Logger

	mu         sync.Mutex
	gauges     map[string]float64
	counters   map[string]uint64
	histograms map[string]*Summary
}

// NewLogMetrics creates a LogMetrics writing to logger, or to the default logger
// when logger is nil.
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{
		logger:     logger,
		gauges:     make(map[string]float64),
		counters:   make(map[string]uint64),
		histograms: make(map[string]*Summary),
	}
}

func (l *LogMetrics) Initialize(context.Context) error {
	l.logger.Debug("log metrics ready")
	return nil
}

// Flush logs every metric as one record.
func (l *LogMetrics) Flush(context.Context) error {
	s := l.Snapshot()
	l.logger.Info("metrics",
		"counters", s.Counters,
		"gauges", s.Gauges,
		"histograms", s.Histograms,
	)
	return nil
}

func (l *LogMetrics) Shutdown(context.Context) error {
	return nil
}

func (l *LogMetrics) UpdateGauge(_ context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gauges[name] = value
	return nil
}

func (l *LogMetrics) IncrementCounter(_ context.Context, name string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counters[name] += value
	return nil
}

func (l *LogMetrics) RecordHistogram(_ context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.histograms[name]
	if !ok {
		s = &Summary{}
		l.histograms[name] = s
	}
	s.observe(value)
	return nil
}

// Snapshot copies the current values.
func (l *LogMetrics) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		Gauges:     maps.Clone(l.gauges),
		Counters:   maps.Clone(l.counters),
		Histograms: make(map[string]Summary, len(l.histograms)),
	}
	for name, h := range l.histograms {
		s.Histograms[name] = *h
	}
	return s
}

// Metric names used by the engine.
const (
	MetricOperationsReceived           = "operations_received"
	MetricOperationsProcessed          = "operations_processed"
	MetricOperationsFailed             = "operations_failed"
	MetricOperationsProcessTimeSeconds = "operations_process_time_seconds"
	MetricPoolsInitialized             = "pools_initialized"
	MetricDepositsProcessed            = "deposits_processed"
	MetricWithdrawalsProcessed         = "withdrawals_processed"
	MetricSwapsProcessed               = "swaps_processed"
	MetricSlippageRejections           = "slippage_rejections"
	MetricSwapVolumeIn                 = "swap_volume_in"
	MetricSwapVolumeOut                = "swap_volume_out"
	MetricSharesMinted                 = "shares_minted"
	MetricSharesBurned                 = "shares_burned"
	MetricJournalWriteFailures         = "journal_write_failures"
)
