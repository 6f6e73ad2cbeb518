package eventbus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the bus's optional Prometheus instrumentation. Counters
// are registered into a registry owned by the Bus instead of the global
// DefaultRegisterer, since a simulation process routinely constructs
// more than one Bus (one per test, one per scenario) and the global
// registerer panics on a second registration of the same metric name.
type Metrics struct {
	Registry *prometheus.Registry

	Published     *prometheus.CounterVec
	Delivered     prometheus.Counter
	Dropped       *prometheus.CounterVec
	HandlerPanics prometheus.Counter
	QueueDepth    prometheus.Gauge
	StepLatency   prometheus.Histogram
}

// NewMetrics builds a fresh, independently-registered Metrics set. Pass
// the result to NewBus; pass nil to run without instrumentation.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsim_bus_messages_published_total",
			Help: "Messages published, labelled by topic.",
		}, []string{"topic"}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsim_bus_messages_delivered_total",
			Help: "Messages popped from the queue and dispatched by step().",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsim_bus_messages_dropped_total",
			Help: "Messages silently dropped, labelled by reason.",
		}, []string{"reason"}),
		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsim_bus_handler_panics_total",
			Help: "Panics recovered from a subscriber's OnMessage.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xsim_bus_queue_depth",
			Help: "Scheduled messages currently waiting in the priority queue.",
		}),
		StepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xsim_bus_step_duration_seconds",
			Help:    "Wall-clock time spent inside one step() call.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
		}),
	}
	reg.MustRegister(m.Published, m.Delivered, m.Dropped, m.HandlerPanics, m.QueueDepth, m.StepLatency)
	return m
}

func (m *Metrics) observeStep(start time.Time) {
	if m == nil {
		return
	}
	m.StepLatency.Observe(time.Since(start).Seconds())
}
