// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for connection pool activity. A nil *PoolMetrics is
// valid and records nothing, so pools can run without instrumentation.

package control

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Acquisition sources.
const (
	SourceNew   = "new"
	SourceReuse = "reuse"
)

// PoolMetrics holds the collectors of one connection pool.
type PoolMetrics struct {
	acquires        *prometheus.CounterVec
	releases        prometheus.Counter
	connectFailures prometheus.Counter
	connectDuration prometheus.Histogram
	idle            prometheus.Gauge
	inFlight        prometheus.Gauge
}

// NewPoolMetrics creates the collectors and registers them on reg.
// Pool distinguishes several pools registered on one registry.
func NewPoolMetrics(reg prometheus.Registerer, pool string) (*PoolMetrics, error) {
	labels := prometheus.Labels{"pool": pool}
	m := &PoolMetrics{
		acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "hioload_ctx",
			Subsystem:   "pool",
			Name:        "acquire_total",
			Help:        "Connections handed out, by source (new or reuse).",
			ConstLabels: labels,
		}, []string{"source"}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hioload_ctx",
			Subsystem:   "pool",
			Name:        "release_total",
			Help:        "Connections returned to the pool.",
			ConstLabels: labels,
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hioload_ctx",
			Subsystem:   "pool",
			Name:        "connect_failures_total",
			Help:        "Failed attempts to open a new connection.",
			ConstLabels: labels,
		}),
		connectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "hioload_ctx",
			Subsystem:   "pool",
			Name:        "connect_duration_seconds",
			Help:        "Time spent opening new connections.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "hioload_ctx",
			Subsystem:   "pool",
			Name:        "idle_connections",
			Help:        "Connections waiting for reuse.",
			ConstLabels: labels,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "hioload_ctx",
			Subsystem:   "pool",
			Name:        "in_flight_connections",
			Help:        "Connections currently held by callers.",
			ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{m.acquires, m.releases, m.connectFailures, m.connectDuration, m.idle, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Acquired counts a connection handed out from source.
func (m *PoolMetrics) Acquired(source string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(source).Inc()
}

// Released counts a connection given back.
func (m *PoolMetrics) Released() {
	if m == nil {
		return
	}
	m.releases.Inc()
}

// Connected records the outcome of opening a connection.
func (m *PoolMetrics) Connected(took time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.connectFailures.Inc()
		return
	}
	m.connectDuration.Observe(took.Seconds())
}

// Observe publishes the current idle and in-flight counts.
func (m *PoolMetrics) Observe(idle, inFlight int) {
	if m == nil {
		return
	}
	m.idle.Set(float64(idle))
	m.inFlight.Set(float64(inFlight))
}
