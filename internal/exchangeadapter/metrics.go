package exchangeadapter

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the bus's per-instance-registry pattern
// (internal/eventbus/metrics.go) rather than promauto's global
// registerer, for the same reason: a simulation process can construct
// more than one adapter (one per symbol, one per test).
type Metrics struct {
	Registry *prometheus.Registry

	OrdersPlaced *prometheus.CounterVec
	Cancels      *prometheus.CounterVec
	Rejects      *prometheus.CounterVec
	Fills        *prometheus.CounterVec
	Bangs        prometheus.Counter
}

// NewMetrics builds a fresh, independently-registered Metrics set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsim_adapter_orders_placed_total",
			Help: "Orders accepted by the engine, labelled by kind (limit, market).",
		}, []string{"kind"}),
		Cancels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsim_adapter_cancels_total",
			Help: "Full cancels and quantity reductions the engine performed, labelled by kind (full, partial).",
		}, []string{"kind"}),
		Rejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsim_adapter_rejects_total",
			Help: "Requests rejected by the adapter or by the engine (engine_reject), labelled by reason.",
		}, []string{"reason"}),
		Fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsim_adapter_fills_total",
			Help: "Fill callbacks translated to outbound messages, labelled by role (maker, taker).",
		}, []string{"role"}),
		Bangs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsim_adapter_bangs_total",
			Help: "Bang resets processed.",
		}),
	}
	reg.MustRegister(m.OrdersPlaced, m.Cancels, m.Rejects, m.Fills, m.Bangs)
	return m
}

// reset zeroes the labelled counters (orders placed, cancels, rejects,
// fills), mirroring the engine and mapping-table reset on Bang. Bangs
// is not reset, so it keeps counting resets across runs.
func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Reset()
	m.Cancels.Reset()
	m.Rejects.Reset()
	m.Fills.Reset()
}
