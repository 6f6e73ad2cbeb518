package exchangeadapter

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/eventbus"
	"github.com/marketsim/xsim/internal/simconfig"
)

// Module provides the exchange adapter for the fx application. The
// provider does the bus registration and subscription bootstrap every
// processor needs (register, then an explicit setup call), and the
// fx.Lifecycle hook only logs start/stop.
var Module = fx.Options(
	fx.Provide(NewAdapterFromConfig),
)

// NewAdapterFromConfig builds the adapter for the configured symbol,
// registers it with the bus, and bootstraps its subscriptions, so every
// other fx.Invoke in cmd/simulate can assume the adapter is already
// live on the bus.
func NewAdapterFromConfig(lc fx.Lifecycle, cfg *simconfig.SimulationConfig, logger *zap.Logger, bus *eventbus.Bus) *Adapter {
	var metrics *Metrics
	if cfg.Metrics.Enabled {
		metrics = NewMetrics()
	}
	a := New(cfg.Engine.Symbol, logger, metrics)
	a.SetSelf(bus.Register(a))
	a.SetupSubscriptions(bus)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("exchange adapter online", zap.String("symbol", cfg.Engine.Symbol), zap.Int64("agent_id", int64(a.Self())))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("exchange adapter stopping", zap.String("symbol", cfg.Engine.Symbol))
			return nil
		},
	})
	return a
}
