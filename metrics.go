package libevents

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "libevents"

// Metrics exposes emitter activity to Prometheus. One Metrics may be shared by many
// emitters; a nil *Metrics records nothing.
type Metrics struct {
	clock clock.Clock

	operations   *prometheus.CounterVec
	deliveries   prometheus.Counter
	failures     prometheus.Counter
	queueDepth   prometheus.Gauge
	emitDuration prometheus.Histogram
}

type MetricsOption func(*Metrics)

// WithClock measures emission durations with c instead of the wall clock.
func WithClock(c clock.Clock) MetricsOption {
	return func(m *Metrics) { m.clock = c }
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) (*Metrics, error) {
	m := &Metrics{
		clock: clock.New(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Total number of queued emitter operations",
			},
			[]string{"op"},
		),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deliveries_total",
			Help:      "Total number of listener invocations",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of listener invocations that failed",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Operations waiting in emitter queues",
		}),
		emitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "emit_duration_seconds",
			Help:      "Time spent delivering one emission to all its listeners",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	for _, opt := range opts {
		opt(m)
	}

	collectors := []prometheus.Collector{m.operations, m.deliveries, m.failures, m.queueDepth, m.emitDuration}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "cannot register emitter metrics")
		}
	}

	return m, nil
}

func (m *Metrics) now() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.clock.Now()
}

func (m *Metrics) operationEnqueued(op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op).Inc()
	m.queueDepth.Inc()
}

func (m *Metrics) operationDequeued() {
	if m == nil {
		return
	}
	m.queueDepth.Dec()
}

func (m *Metrics) emitted(started time.Time, delivered, failed int) {
	if m == nil {
		return
	}
	m.deliveries.Add(float64(delivered))
	m.failures.Add(float64(failed))
	m.emitDuration.Observe(m.clock.Since(started).Seconds())
}
