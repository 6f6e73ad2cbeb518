// Package exchangeadapter translates external order-intent messages
// into matching-engine calls and reconstructs semantically rich
// fill/ack/reject bus messages from the engine's callback stream.
package exchangeadapter

import (
	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/eventbus"
	"github.com/marketsim/xsim/internal/matchingengine"
	"github.com/marketsim/xsim/internal/model"
)

// Adapter is the bridge between the bus's message world and the
// engine's narrow (id, callback) world. One Adapter serves exactly one
// symbol and owns exactly one Engine.
type Adapter struct {
	self    model.AgentID
	symbol  string
	engine  *matchingengine.Engine
	bus     *eventbus.Bus
	logger  *zap.Logger
	metrics *Metrics

	maps    *mappings
	partial map[model.EngineID]*partialFillState

	// triggerSender records which watchdog instance sent a given
	// expiration trigger, so the Ack/Reject can be routed back to it.
	triggerSender map[model.EngineID]model.AgentID

	// pending* are scratch fields valid only for the duration of one
	// engine call: the acknowledgment and taker-side fill callbacks
	// fire synchronously inside that call, before the adapter would
	// otherwise have anywhere to record whose order this is.
	pendingCID       model.ClientOrderID
	pendingOwner     model.AgentID
	pendingMarketAck *marketAckPending

	lastBids, lastAsks []eventbus.PriceLevel

	// forceNextSnapshot bypasses the "only publish if changed" dedup in
	// OnOrderBookSnapshot for exactly one call: Bang must always
	// republish its (now empty) snapshot even when the book was already
	// empty beforehand, which the ordinary change-detection would
	// otherwise suppress.
	forceNextSnapshot bool
}

type marketAckPending struct {
	side                          model.Side
	requested, executed, unfilled model.Qty
	owner                         model.AgentID
}

// New constructs an adapter for one symbol. Register it with the bus,
// then call SetupSubscriptions.
func New(symbol string, logger *zap.Logger, metrics *Metrics) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		symbol:        symbol,
		logger:        logger.With(zap.String("symbol", symbol)),
		metrics:       metrics,
		maps:          newMappings(),
		partial:       make(map[model.EngineID]*partialFillState),
		triggerSender: make(map[model.EngineID]model.AgentID),
	}
	a.engine = matchingengine.New(a)
	return a
}

// SetupSubscriptions implements eventbus.Processor. self must already
// have been set with SetSelf(bus.Register(a)).
func (a *Adapter) SetupSubscriptions(bus *eventbus.Bus) {
	a.bus = bus
	for _, kind := range []string{
		eventbus.KindLimitOrder,
		eventbus.KindMarketOrder,
		eventbus.KindFullCancelLimitOrder,
		eventbus.KindPartialCancelLimitOrder,
		eventbus.KindFullCancelMarketOrder,
		eventbus.KindPartialCancelMarketOrder,
	} {
		bus.Subscribe(a.self, eventbus.SymbolTopic(kind, a.symbol))
	}
	bus.Subscribe(a.self, eventbus.SymbolTopic(eventbus.KindTriggerExpiredLimitOrder, a.symbol))
	bus.Subscribe(a.self, eventbus.Topic(eventbus.KindBang))
}

// SetSelf records the agent id the bus assigned this adapter. Must be
// called before SetupSubscriptions.
func (a *Adapter) SetSelf(id model.AgentID) { a.self = id }

// Self returns the adapter's own agent id.
func (a *Adapter) Self() model.AgentID { return a.self }

// Engine exposes the underlying engine for read-only inspection (tests,
// a visualization buffer).
func (a *Adapter) Engine() *matchingengine.Engine { return a.engine }

// --- eventbus.Processor -----------------------------------------------

// OnMessage implements eventbus.Processor, dispatching by concrete
// message type.
func (a *Adapter) OnMessage(msg eventbus.Message, topic string, publisher model.AgentID, now model.Time, stream string, seq uint64) {
	switch m := msg.(type) {
	case *eventbus.LimitOrder:
		a.handleLimitOrder(m)
	case *eventbus.MarketOrder:
		a.handleMarketOrder(m)
	case *eventbus.FullCancelLimitOrder:
		a.handleFullCancelLimit(m)
	case *eventbus.PartialCancelLimitOrder:
		a.handlePartialCancelLimit(m)
	case *eventbus.FullCancelMarketOrder:
		a.handleFullCancelMarket(m)
	case *eventbus.PartialCancelMarketOrder:
		a.handlePartialCancelMarket(m)
	case *eventbus.TriggerExpiredLimitOrder:
		a.handleTriggerExpired(m)
	case *eventbus.Bang:
		a.handleBang()
	default:
		a.logger.Warn("adapter received an unhandled message kind", zap.String("kind", msg.Kind()))
	}
}

func (a *Adapter) handleLimitOrder(m *eventbus.LimitOrder) {
	a.pendingCID = m.CID
	a.pendingOwner = m.Owner
	a.engine.PlaceLimit(m.Side, m.Price, m.Qty, m.Timeout, m.Owner)
	if a.metrics != nil {
		a.metrics.OrdersPlaced.WithLabelValues("limit").Inc()
	}
	a.publishSnapshot()
}

func (a *Adapter) handleMarketOrder(m *eventbus.MarketOrder) {
	a.pendingCID = m.CID
	a.pendingOwner = m.Owner
	id := a.engine.PlaceMarket(m.Side, m.Qty, m.Owner)
	a.maps.register(m.Owner, m.CID, id, model.KindMarket)

	if a.pendingMarketAck != nil {
		ack := a.pendingMarketAck
		a.pendingMarketAck = nil
		a.publishOwnerOnly(eventbus.KindMarketOrderAck, m.Owner, m.CID, &eventbus.MarketOrderAck{
			Base:         a.stamp(),
			Symbol:       a.symbol,
			Side:         ack.side,
			CID:          m.CID,
			XID:          id,
			RequestedQty: ack.requested,
			ExecutedQty:  ack.executed,
			UnfilledQty:  ack.unfilled,
			Owner:        ack.owner,
		})
	}
	if a.metrics != nil {
		a.metrics.OrdersPlaced.WithLabelValues("market").Inc()
	}
	a.publishSnapshot()
}

func (a *Adapter) handleFullCancelLimit(m *eventbus.FullCancelLimitOrder) {
	id, ok := a.maps.resolve(m.Owner, m.CID, model.KindLimit)
	if !ok {
		a.reject("unknown_or_mistyped", eventbus.KindFullCancelLimitOrderReject, m.Owner, &eventbus.FullCancelLimitOrderReject{
			Base: a.stamp(), Symbol: a.symbol, Side: m.Side, CID: m.CID, Owner: m.Owner,
		})
		return
	}
	a.pendingCID = m.CID
	a.pendingOwner = m.Owner
	a.engine.Cancel(id, m.Owner)
	a.publishSnapshot()
}

func (a *Adapter) handlePartialCancelLimit(m *eventbus.PartialCancelLimitOrder) {
	id, ok := a.maps.resolve(m.Owner, m.CID, model.KindLimit)
	if !ok {
		a.reject("unknown_or_mistyped", eventbus.KindPartialCancelLimitOrderReject, m.Owner, &eventbus.PartialCancelLimitOrderReject{
			Base: a.stamp(), Symbol: a.symbol, Side: m.Side, CID: m.CID, Owner: m.Owner,
		})
		return
	}
	current, ok := a.engine.RemainingQty(id)
	if !ok {
		a.reject("unknown_or_mistyped", eventbus.KindPartialCancelLimitOrderReject, m.Owner, &eventbus.PartialCancelLimitOrderReject{
			Base: a.stamp(), Symbol: a.symbol, Side: m.Side, CID: m.CID, Owner: m.Owner,
		})
		return
	}
	newQty := current - m.CancelQty
	if newQty < 0 {
		newQty = 0
	}

	a.pendingCID = m.CID
	a.pendingOwner = m.Owner
	if newQty == 0 {
		a.engine.Cancel(id, m.Owner)
	} else {
		a.engine.ModifyQuantity(id, newQty, m.Owner)
	}
	a.publishSnapshot()
}

func (a *Adapter) handleFullCancelMarket(m *eventbus.FullCancelMarketOrder) {
	a.reject("market_never_rests", eventbus.KindFullCancelMarketOrderReject, m.Owner, &eventbus.FullCancelMarketOrderReject{
		Base: a.stamp(), Symbol: a.symbol, Side: m.Side, CID: m.CID, Owner: m.Owner,
	})
}

func (a *Adapter) handlePartialCancelMarket(m *eventbus.PartialCancelMarketOrder) {
	a.reject("market_never_rests", eventbus.KindPartialCancelMarketOrderRej, m.Owner, &eventbus.PartialCancelMarketOrderReject{
		Base: a.stamp(), Symbol: a.symbol, Side: m.Side, CID: m.CID, Owner: m.Owner,
	})
}

func (a *Adapter) handleTriggerExpired(m *eventbus.TriggerExpiredLimitOrder) {
	a.triggerSender[m.Target] = m.Sender
	a.engine.CancelExpired(m.Target, m.Lifetime)
}

func (a *Adapter) handleBang() {
	a.engine.Flush()
	a.maps.flush()
	a.partial = make(map[model.EngineID]*partialFillState)
	a.triggerSender = make(map[model.EngineID]model.AgentID)
	if a.metrics != nil {
		a.metrics.reset()
		a.metrics.Bangs.Inc()
	}
	a.forceNextSnapshot = true
	a.publishSnapshot()
}

func (a *Adapter) reject(reason, kind string, owner model.AgentID, msg eventbus.Message) {
	if a.metrics != nil {
		a.metrics.Rejects.WithLabelValues(reason).Inc()
	}
	a.bus.Publish(a.self, eventbus.AgentTopic(kind, owner), msg)
}

// publishOwnerOnly publishes to the per-trader topic, always attaching
// the order's lifecycle stream id.
func (a *Adapter) publishOwnerOnly(kind string, owner model.AgentID, cid model.ClientOrderID, msg eventbus.Message) {
	a.bus.PublishStream(a.self, eventbus.AgentTopic(kind, owner), eventbus.OrderStream(owner, cid), msg)
}

// publishGlobalAndOwner publishes the two-topic pattern used for
// acks, full fills and cancel acks of resting orders: a
// global topic the watchdog subscribes to once, and a per-trader topic
// for targeted delivery. Transient ids never concern the watchdog, so
// they only get the per-trader topic.
func (a *Adapter) publishGlobalAndOwner(kind string, xid model.EngineID, owner model.AgentID, cid model.ClientOrderID, msg eventbus.Message) {
	stream := eventbus.OrderStream(owner, cid)
	if xid < model.TransientStart {
		a.bus.PublishStream(a.self, eventbus.Topic(kind), stream, msg)
	}
	a.bus.PublishStream(a.self, eventbus.AgentTopic(kind, owner), stream, msg)
}

func (a *Adapter) publishSnapshot() {
	a.engine.Snapshot()
}

// stamp dates an outbound message at the current virtual time.
func (a *Adapter) stamp() eventbus.Base {
	return eventbus.Base{Created: a.bus.Now()}
}
