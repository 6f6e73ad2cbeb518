package eventbus

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/simconfig"
)

// Module provides the event bus for the fx application.
var Module = fx.Options(
	fx.Provide(NewBusFromConfig),
)

// NewBusFromConfig seeds the bus from a loaded SimulationConfig and
// installs its configured default latency.
func NewBusFromConfig(cfg *simconfig.SimulationConfig, logger *zap.Logger) *Bus {
	var metrics *Metrics
	if cfg.Metrics.Enabled {
		metrics = NewMetrics()
	}
	bus := NewBus(cfg.Seed, logger, metrics)
	dl := LognormalLatency(
		cfg.Bus.DefaultLatencyMedianUS,
		cfg.Bus.DefaultLatencySigma,
		cfg.Bus.DefaultLatencyCapUS,
	)
	bus.defaultLatency = &dl
	return bus
}
