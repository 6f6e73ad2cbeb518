package exchangeadapter

import (
	"time"

	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/eventbus"
	"github.com/marketsim/xsim/internal/matchingengine"
	"github.com/marketsim/xsim/internal/model"
)

// This file implements matchingengine.Callbacks: the translation from
// the engine's narrow (id, callback) vocabulary into rich outbound bus
// messages. Every method here runs synchronously inside an Engine call;
// there is no reentrancy into the bus from here beyond
// a.bus.Publish/PublishStream, and those never deliver synchronously.

var _ matchingengine.Callbacks = (*Adapter)(nil)

func (a *Adapter) OnLimitOrderAcknowledged(id model.EngineID, side model.Side, price model.Price, originalQty, restingQty model.Qty, owner model.AgentID, timeout time.Duration) {
	cid := a.pendingCID
	// Only a resting order enters the mapping tables; an order that
	// filled away entirely has nothing left to cancel, modify or expire,
	// and its taker fills are routed through the pending scratch fields.
	if id < model.TransientStart {
		a.maps.register(owner, cid, id, model.KindLimit)
	}
	a.publishGlobalAndOwner(eventbus.KindLimitOrderAck, id, owner, cid, &eventbus.LimitOrderAck{
		Base:        a.stamp(),
		Symbol:      a.symbol,
		Side:        side,
		CID:         cid,
		XID:         id,
		Price:       price,
		OriginalQty: originalQty,
		RestingQty:  restingQty,
		Owner:       owner,
		Timeout:     timeout,
	})
}

func (a *Adapter) OnMarketOrderAcknowledged(side model.Side, requested, executed, unfilled model.Qty, owner model.AgentID) {
	// XID isn't known yet here (PlaceMarket hasn't returned); defer
	// publication to handleMarketOrder, which has it.
	a.pendingMarketAck = &marketAckPending{side: side, requested: requested, executed: executed, unfilled: unfilled, owner: owner}
}

func (a *Adapter) OnPartialCancelLimit(id model.EngineID, price model.Price, delta model.Qty, requester model.AgentID) {
	key, ok := a.maps.orderKeyOf(id)
	if !ok {
		a.logger.Error("partial cancel callback for unmapped engine id", zap.Int64("xid", int64(id)))
		return
	}
	remaining, _ := a.engine.RemainingQty(id)
	if a.metrics != nil {
		a.metrics.Cancels.WithLabelValues("partial").Inc()
	}
	a.publishOwnerOnly(eventbus.KindPartialCancelLimitOrderAck, requester, key.CID, &eventbus.PartialCancelLimitOrderAck{
		Base:         a.stamp(),
		Symbol:       a.symbol,
		CID:          key.CID,
		XID:          id,
		Price:        price,
		CancelledQty: delta,
		RemainingQty: remaining,
		Owner:        requester,
	})
}

func (a *Adapter) OnPartialCancelLimitReject(id model.EngineID, requester model.AgentID) {
	cid := a.pendingCID
	if a.metrics != nil {
		a.metrics.Rejects.WithLabelValues("engine_reject").Inc()
	}
	a.publishOwnerOnly(eventbus.KindPartialCancelLimitOrderReject, requester, cid, &eventbus.PartialCancelLimitOrderReject{
		Base: a.stamp(), Symbol: a.symbol, CID: cid, Owner: requester,
	})
}

func (a *Adapter) OnFullCancelLimit(id model.EngineID, price model.Price, qty model.Qty, side model.Side, requester model.AgentID) {
	key, ok := a.maps.orderKeyOf(id)
	cid := a.pendingCID
	if ok {
		cid = key.CID
	}
	delete(a.partial, id)
	a.maps.erase(id)
	if a.metrics != nil {
		a.metrics.Cancels.WithLabelValues("full").Inc()
	}
	a.publishGlobalAndOwner(eventbus.KindFullCancelLimitOrderAck, id, requester, cid, &eventbus.FullCancelLimitOrderAck{
		Base:         a.stamp(),
		Symbol:       a.symbol,
		Side:         side,
		CID:          cid,
		XID:          id,
		Price:        price,
		CancelledQty: qty,
		Owner:        requester,
	})
}

func (a *Adapter) OnFullCancelLimitReject(id model.EngineID, requester model.AgentID) {
	cid := a.pendingCID
	if a.metrics != nil {
		a.metrics.Rejects.WithLabelValues("engine_reject").Inc()
	}
	a.publishOwnerOnly(eventbus.KindFullCancelLimitOrderReject, requester, cid, &eventbus.FullCancelLimitOrderReject{
		Base: a.stamp(), Symbol: a.symbol, CID: cid, Owner: requester,
	})
}

func (a *Adapter) OnTrade(price model.Price, qty model.Qty, makerXID, takerXID model.EngineID, makerSide model.Side) {
	a.bus.Publish(a.self, eventbus.SymbolTopic(eventbus.KindTrade, a.symbol), &eventbus.Trade{
		Base:      a.stamp(),
		Symbol:    a.symbol,
		Price:     price,
		Qty:       qty,
		MakerXID:  makerXID,
		TakerXID:  takerXID,
		MakerSide: makerSide,
	})
}

// makerKey resolves the (owner, cid) of an already-resting maker order.
// Unlike the taker side, the maker's mapping was registered by an
// earlier, already-returned engine call, so it is always safe to look
// up here.
func (a *Adapter) makerKey(xid model.EngineID, fallbackOwner model.AgentID) (owner model.AgentID, cid model.ClientOrderID, ok bool) {
	key, found := a.maps.orderKeyOf(xid)
	if !found {
		a.logger.Error("fill callback for unmapped maker engine id", zap.Int64("xid", int64(xid)))
		return fallbackOwner, 0, false
	}
	return key.Owner, key.CID, true
}

func (a *Adapter) onPartialFill(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, cid model.ClientOrderID, leaves model.Qty) eventbus.Fill {
	st, ok := a.partial[xid]
	if !ok {
		st = &partialFillState{}
		a.partial[xid] = st
	}
	cumulative, avg := st.foldSegment(priceSeg, qtySeg)
	return eventbus.Fill{
		Base:       a.stamp(),
		Symbol:     a.symbol,
		Side:       side,
		CID:        cid,
		XID:        xid,
		Owner:      owner,
		PriceSeg:   priceSeg,
		QtySeg:     qtySeg,
		Leaves:     leaves,
		Cumulative: cumulative,
		AvgPrice:   avg,
	}
}

func (a *Adapter) onFullFill(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID, cid model.ClientOrderID) eventbus.Fill {
	st, ok := a.partial[xid]
	var avg model.Price
	lastSeg := totalQty
	if !ok {
		avg = priceLast
	} else {
		lastSeg = totalQty - st.qtySoFar
		_, avg = st.foldSegment(priceLast, lastSeg)
	}
	delete(a.partial, xid)
	return eventbus.Fill{
		Base:       a.stamp(),
		Symbol:     a.symbol,
		Side:       side,
		CID:        cid,
		XID:        xid,
		Owner:      owner,
		PriceSeg:   priceLast,
		QtySeg:     lastSeg,
		Leaves:     0,
		Cumulative: totalQty,
		AvgPrice:   avg,
	}
}

func (a *Adapter) OnMakerPartialFillLimit(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	o, cid, ok := a.makerKey(xid, owner)
	if !ok {
		return
	}
	fill := a.onPartialFill(xid, side, priceSeg, qtySeg, o, cid, leaves)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("maker").Inc()
	}
	a.publishOwnerOnly(eventbus.KindMakerPartialFillLimit, o, cid, &eventbus.MakerPartialFillLimit{Fill: fill})
}

func (a *Adapter) OnMakerFullFillLimit(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	o, cid, ok := a.makerKey(xid, owner)
	if !ok {
		return
	}
	fill := a.onFullFill(xid, side, priceLast, totalQty, o, cid)
	a.maps.erase(xid)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("maker").Inc()
	}
	a.publishGlobalAndOwner(eventbus.KindMakerFullFillLimit, xid, o, cid, &eventbus.MakerFullFillLimit{Fill: fill})
}

func (a *Adapter) OnTakerPartialFillLimit(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	cid := a.pendingCID
	fill := a.onPartialFill(xid, side, priceSeg, qtySeg, owner, cid, leaves)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("taker").Inc()
	}
	a.publishOwnerOnly(eventbus.KindTakerPartialFillLimit, owner, cid, &eventbus.TakerPartialFillLimit{Fill: fill})
}

func (a *Adapter) OnTakerFullFillLimit(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	cid := a.pendingCID
	fill := a.onFullFill(xid, side, priceLast, totalQty, owner, cid)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("taker").Inc()
	}
	a.publishGlobalAndOwner(eventbus.KindTakerFullFillLimit, xid, owner, cid, &eventbus.TakerFullFillLimit{Fill: fill})
}

func (a *Adapter) OnMakerPartialFillMarket(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	o, cid, ok := a.makerKey(xid, owner)
	if !ok {
		return
	}
	fill := a.onPartialFill(xid, side, priceSeg, qtySeg, o, cid, leaves)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("maker").Inc()
	}
	a.publishOwnerOnly(eventbus.KindMakerPartialFillMarket, o, cid, &eventbus.MakerPartialFillMarket{Fill: fill})
}

func (a *Adapter) OnMakerFullFillMarket(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	o, cid, ok := a.makerKey(xid, owner)
	if !ok {
		return
	}
	fill := a.onFullFill(xid, side, priceLast, totalQty, o, cid)
	a.maps.erase(xid)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("maker").Inc()
	}
	// The maker here is always a resting limit order (market orders
	// never rest); a market taker fully consuming it is exactly as
	// terminal for that order as a limit taker doing so, so this
	// publishes on the same two topics as OnMakerFullFillLimit, letting
	// the watchdog's single global subscription see both.
	a.publishGlobalAndOwner(eventbus.KindMakerFullFillMarket, xid, o, cid, &eventbus.MakerFullFillMarket{Fill: fill})
}

func (a *Adapter) OnTakerPartialFillMarket(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	cid := a.pendingCID
	fill := a.onPartialFill(xid, side, priceSeg, qtySeg, owner, cid, leaves)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("taker").Inc()
	}
	a.publishOwnerOnly(eventbus.KindTakerPartialFillMarket, owner, cid, &eventbus.TakerPartialFillMarket{Fill: fill})
}

func (a *Adapter) OnTakerFullFillMarket(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	cid := a.pendingCID
	fill := a.onFullFill(xid, side, priceLast, totalQty, owner, cid)
	if a.metrics != nil {
		a.metrics.Fills.WithLabelValues("taker").Inc()
	}
	a.publishOwnerOnly(eventbus.KindTakerFullFillMarket, owner, cid, &eventbus.TakerFullFillMarket{Fill: fill})
}

func (a *Adapter) OnOrderBookSnapshot(bids, asks []matchingengine.Level) {
	newBids := toEventLevels(bids)
	newAsks := toEventLevels(asks)
	force := a.forceNextSnapshot
	a.forceNextSnapshot = false
	if !force && levelsEqual(a.lastBids, newBids) && levelsEqual(a.lastAsks, newAsks) {
		return
	}
	a.lastBids, a.lastAsks = newBids, newAsks
	a.bus.PublishStream(a.self, eventbus.SymbolTopic(eventbus.KindL2OrderBookSnapshot, a.symbol), eventbus.L2Stream(a.symbol), &eventbus.L2OrderBookSnapshot{
		Base:   a.stamp(),
		Symbol: a.symbol,
		Bids:   newBids,
		Asks:   newAsks,
	})
}

func (a *Adapter) OnAcknowledgeTriggerExpiration(id model.EngineID, timeout time.Duration) {
	key, _ := a.maps.orderKeyOf(id)
	sender, hasSender := a.triggerSender[id]
	delete(a.triggerSender, id)
	delete(a.partial, id)
	a.maps.erase(id)

	owner := key.Owner
	a.bus.Publish(a.self, eventbus.AgentTopic(eventbus.KindAckTriggerExpiredLimitOrder, pickSender(sender, hasSender, owner)), &eventbus.AckTriggerExpiredLimitOrder{
		Base: a.stamp(), Symbol: a.symbol, Target: id, Owner: owner,
	})
	a.bus.Publish(a.self, eventbus.Topic(eventbus.KindLimitOrderExpired), &eventbus.LimitOrderExpired{
		Base: a.stamp(), Symbol: a.symbol, Target: id, Owner: owner,
	})
	a.bus.Publish(a.self, eventbus.AgentTopic(eventbus.KindLimitOrderExpired, owner), &eventbus.LimitOrderExpired{
		Base: a.stamp(), Symbol: a.symbol, Target: id, Owner: owner,
	})
}

func (a *Adapter) OnRejectTriggerExpiration(id model.EngineID, timeout time.Duration) {
	sender, hasSender := a.triggerSender[id]
	delete(a.triggerSender, id)
	a.bus.Publish(a.self, eventbus.AgentTopic(eventbus.KindRejectTriggerExpiredLimit, pickSender(sender, hasSender, a.self)), &eventbus.RejectTriggerExpiredLimitOrder{
		Base: a.stamp(), Symbol: a.symbol, Target: id,
	})
}

func pickSender(sender model.AgentID, has bool, fallback model.AgentID) model.AgentID {
	if has {
		return sender
	}
	return fallback
}

func toEventLevels(levels []matchingengine.Level) []eventbus.PriceLevel {
	if levels == nil {
		return nil
	}
	out := make([]eventbus.PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = eventbus.PriceLevel{Price: l.Price, Qty: l.Qty}
	}
	return out
}

func levelsEqual(a, b []eventbus.PriceLevel) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
