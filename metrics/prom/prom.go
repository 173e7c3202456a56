// Package prom exports loader events as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/batchload"
)

// ============================================================================
// Prometheus Metrics for batch loaders
// ============================================================================

// Metrics implements batchload.Hooks. All methods are nil-safe: a nil *Metrics
// records nothing, so it can be passed where metrics are disabled.
type Metrics struct {
	// Hits counts requests answered from a loader's cache, labeled by loader.
	Hits *prometheus.CounterVec

	// Misses counts requests that entered a window, labeled by loader.
	Misses *prometheus.CounterVec

	// Batches counts dispatched fetches, labeled by loader and reason.
	// Reason values: "full", "timer", "flush", "close".
	Batches *prometheus.CounterVec

	// FetchErrors counts failed fetches, labeled by loader.
	FetchErrors *prometheus.CounterVec

	// Panics counts fetches that panicked, labeled by loader.
	Panics *prometheus.CounterVec

	// ClosedUse counts calls on closed loaders, labeled by loader and op.
	ClosedUse *prometheus.CounterVec

	// BatchKeys observes the number of keys per fetch.
	BatchKeys *prometheus.HistogramVec

	// FetchDuration observes fetch latency in seconds.
	FetchDuration *prometheus.HistogramVec
}

var _ batchload.Hooks = (*Metrics)(nil)

// New creates the metrics and registers them with reg. If reg is nil the metrics
// are created but not registered (useful for testing). Registering twice on the
// same registry reuses the collectors already there.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "batchload"
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      name,
			Help:      help,
		}, labels)
	}
	histogram := func(name, help string, buckets []float64) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, []string{"loader"})
	}

	m := &Metrics{
		Hits:          counter("cache_hits_total", "Requests answered from the request cache", "loader"),
		Misses:        counter("cache_misses_total", "Requests that entered a batch window", "loader"),
		Batches:       counter("batches_total", "Fetches dispatched", "loader", "reason"),
		FetchErrors:   counter("fetch_errors_total", "Fetches that returned an error", "loader"),
		Panics:        counter("fetch_panics_total", "Fetches that panicked", "loader"),
		ClosedUse:     counter("closed_use_total", "Calls on closed loaders", "loader", "op"),
		BatchKeys:     histogram("batch_keys", "Keys per fetch", prometheus.ExponentialBuckets(1, 2, 10)),
		FetchDuration: histogram("fetch_duration_seconds", "Fetch latency in seconds", prometheus.DefBuckets),
	}

	if reg != nil {
		m.Hits = registerOrReuse(reg, m.Hits).(*prometheus.CounterVec)
		m.Misses = registerOrReuse(reg, m.Misses).(*prometheus.CounterVec)
		m.Batches = registerOrReuse(reg, m.Batches).(*prometheus.CounterVec)
		m.FetchErrors = registerOrReuse(reg, m.FetchErrors).(*prometheus.CounterVec)
		m.Panics = registerOrReuse(reg, m.Panics).(*prometheus.CounterVec)
		m.ClosedUse = registerOrReuse(reg, m.ClosedUse).(*prometheus.CounterVec)
		m.BatchKeys = registerOrReuse(reg, m.BatchKeys).(*prometheus.HistogramVec)
		m.FetchDuration = registerOrReuse(reg, m.FetchDuration).(*prometheus.HistogramVec)
	}
	return m
}

// registerOrReuse registers c with reg. If an identical collector is already
// registered, the existing one is returned so counts keep accumulating in it.
// Panics on any other registration failure.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Metrics) CacheHit(loader string) {
	if m == nil {
		return
	}
	m.Hits.WithLabelValues(loader).Inc()
}

func (m *Metrics) CacheMiss(loader string) {
	if m == nil {
		return
	}
	m.Misses.WithLabelValues(loader).Inc()
}

func (m *Metrics) BatchDispatched(loader string, keys int, reason string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(loader, reason).Inc()
	m.BatchKeys.WithLabelValues(loader).Observe(float64(keys))
}

func (m *Metrics) BatchDone(loader string, _ int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(loader).Observe(took.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(loader).Inc()
	}
}

func (m *Metrics) FetchPanic(loader string, _ any) {
	if m == nil {
		return
	}
	m.Panics.WithLabelValues(loader).Inc()
}

// PrimeRejected is not exported; rejections are expected during normal use.
func (m *Metrics) PrimeRejected(string) {}

func (m *Metrics) Misuse(loader string, op string) {
	if m == nil {
		return
	}
	m.ClosedUse.WithLabelValues(loader, op).Inc()
}
