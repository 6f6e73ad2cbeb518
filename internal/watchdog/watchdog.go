// Package watchdog implements the expiration watchdog: the agent that
// schedules time-of-life checks for resting limit orders and drives the
// order-expiration handshake with the exchange adapter. It is a plain
// eventbus.Processor with no privileged access to any other component.
package watchdog

import (
	"time"

	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/eventbus"
	"github.com/marketsim/xsim/internal/model"
)

// tracked is one resting limit order's bookkeeping entry.
type tracked struct {
	symbol   string
	placer   model.AgentID
	lifetime time.Duration
}

// Watchdog tracks every limit order it has seen acknowledged as
// resting and ensures each is cancelled no later than its declared
// lifetime.
type Watchdog struct {
	self   model.AgentID
	bus    *eventbus.Bus
	logger *zap.Logger

	table map[model.EngineID]tracked
}

// New constructs a watchdog. Register it with the bus, call SetSelf,
// then SetupSubscriptions.
func New(logger *zap.Logger) *Watchdog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watchdog{
		logger: logger.With(zap.String("component", "watchdog")),
		table:  make(map[model.EngineID]tracked),
	}
}

// SetSelf records the agent id the bus assigned this watchdog. Must be
// called before SetupSubscriptions.
func (w *Watchdog) SetSelf(id model.AgentID) { w.self = id }

// Self returns the watchdog's own agent id.
func (w *Watchdog) Self() model.AgentID { return w.self }

// TrackedCount exposes the size of the tracking table, for tests
// asserting the "at most one live timer per engine id" invariant and
// the terminal-state round trips.
func (w *Watchdog) TrackedCount() int { return len(w.table) }

// IsTracked reports whether id currently has a live entry.
func (w *Watchdog) IsTracked(id model.EngineID) bool {
	_, ok := w.table[id]
	return ok
}

// SetupSubscriptions implements eventbus.Processor: the global
// resting-ack and terminal-event topics, the self-targeted timer and
// handshake topics, and Bang.
func (w *Watchdog) SetupSubscriptions(bus *eventbus.Bus) {
	w.bus = bus
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindLimitOrderAck))
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindMakerFullFillLimit))
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindTakerFullFillLimit))
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindMakerFullFillMarket))
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindFullCancelLimitOrderAck))
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindLimitOrderExpired))
	bus.Subscribe(w.self, eventbus.AgentTopic(eventbus.KindCheckLimitOrderExpiration, w.self))
	bus.Subscribe(w.self, eventbus.AgentTopic(eventbus.KindAckTriggerExpiredLimitOrder, w.self))
	bus.Subscribe(w.self, eventbus.AgentTopic(eventbus.KindRejectTriggerExpiredLimit, w.self))
	bus.Subscribe(w.self, eventbus.Topic(eventbus.KindBang))
}

// OnMessage implements eventbus.Processor, dispatching by concrete
// message type.
func (w *Watchdog) OnMessage(msg eventbus.Message, topic string, publisher model.AgentID, now model.Time, stream string, seq uint64) {
	switch m := msg.(type) {
	case *eventbus.LimitOrderAck:
		w.onLimitOrderAck(m, now)
	case *eventbus.CheckLimitOrderExpiration:
		w.onCheckExpiration(m)
	case *eventbus.AckTriggerExpiredLimitOrder:
		delete(w.table, m.Target)
	case *eventbus.RejectTriggerExpiredLimitOrder:
		delete(w.table, m.Target)
	case *eventbus.MakerFullFillLimit:
		delete(w.table, m.XID)
	case *eventbus.TakerFullFillLimit:
		delete(w.table, m.XID)
	case *eventbus.MakerFullFillMarket:
		// A tracked order is always resting, so it can only ever appear
		// on the maker side of a later match; an incoming market taker
		// fully consuming it is just as terminal as a limit taker doing
		// so.
		delete(w.table, m.XID)
	case *eventbus.FullCancelLimitOrderAck:
		delete(w.table, m.XID)
	case *eventbus.LimitOrderExpired:
		delete(w.table, m.Target)
	case *eventbus.Bang:
		w.table = make(map[model.EngineID]tracked)
	default:
		w.logger.Warn("watchdog received an unhandled message kind", zap.String("kind", msg.Kind()))
	}
}

// onLimitOrderAck picks up a newly resting order and arms its
// expiration timer. An order that never rested (RestingQty == 0) has
// nothing to expire and is not tracked; an order with a zero lifetime
// is good until cancelled and likewise left untracked.
func (w *Watchdog) onLimitOrderAck(m *eventbus.LimitOrderAck, now model.Time) {
	if m.RestingQty == 0 || m.Timeout <= 0 {
		return
	}
	if _, already := w.table[m.XID]; already {
		// A given engine id is only ever acknowledged once; a repeat
		// delivery is a bus-level anomaly, not a new order. Arming a
		// second timer here would double-trigger the same order later.
		return
	}
	w.table[m.XID] = tracked{symbol: m.Symbol, placer: m.Owner, lifetime: m.Timeout}

	w.bus.ScheduleForSelfAt(
		w.self,
		now.Add(m.Timeout),
		&eventbus.CheckLimitOrderExpiration{
			Base:     eventbus.Base{Created: now},
			Target:   m.XID,
			Lifetime: m.Timeout,
		},
		eventbus.AgentTopic(eventbus.KindCheckLimitOrderExpiration, w.self),
		eventbus.ExpireCheckStream(m.XID),
	)
}

// onCheckExpiration fires when a previously-armed timer reaches its
// delivery time. If the order is still tracked, the watchdog publishes
// a trigger to the adapter and keeps the tracking entry: the order is
// not known to be gone until the adapter's Ack/Reject comes back.
func (w *Watchdog) onCheckExpiration(m *eventbus.CheckLimitOrderExpiration) {
	t, ok := w.table[m.Target]
	if !ok {
		return
	}
	w.bus.Publish(w.self, eventbus.SymbolTopic(eventbus.KindTriggerExpiredLimitOrder, t.symbol), &eventbus.TriggerExpiredLimitOrder{
		Base:     eventbus.Base{Created: w.bus.Now()},
		Symbol:   t.symbol,
		Target:   m.Target,
		Lifetime: m.Lifetime,
		Placer:   t.placer,
		Sender:   w.self,
	})
}
