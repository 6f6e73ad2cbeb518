package watchdog

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/eventbus"
)

// Module provides the expiration watchdog for the fx application, the
// same register-then-bootstrap shape as exchangeadapter.Module.
var Module = fx.Options(
	fx.Provide(NewWatchdogFromConfig),
)

// NewWatchdogFromConfig constructs the watchdog, registers it with the
// bus, and bootstraps its subscriptions.
func NewWatchdogFromConfig(lc fx.Lifecycle, logger *zap.Logger, bus *eventbus.Bus) *Watchdog {
	w := New(logger)
	w.SetSelf(bus.Register(w))
	w.SetupSubscriptions(bus)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("expiration watchdog online", zap.Int64("agent_id", int64(w.Self())))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("expiration watchdog stopping", zap.Int("tracked", w.TrackedCount()))
			return nil
		},
	})
	return w
}
