package matchingengine

import (
	"time"

	"github.com/marketsim/xsim/internal/model"
)

// Level is one (price, aggregate quantity) entry of a snapshot.
type Level struct {
	Price model.Price
	Qty   model.Qty
}

// Callbacks is the engine's entire output surface. The engine never
// returns rich results and never panics across this boundary; every
// semantically distinct event gets its own method so the exchange
// adapter can react to each independently.
type Callbacks interface {
	OnLimitOrderAcknowledged(id model.EngineID, side model.Side, price model.Price, originalQty, restingQty model.Qty, owner model.AgentID, timeout time.Duration)
	OnMarketOrderAcknowledged(side model.Side, requested, executed, unfilled model.Qty, owner model.AgentID)

	OnPartialCancelLimit(id model.EngineID, price model.Price, delta model.Qty, requester model.AgentID)
	OnPartialCancelLimitReject(id model.EngineID, requester model.AgentID)
	OnFullCancelLimit(id model.EngineID, price model.Price, qty model.Qty, side model.Side, requester model.AgentID)
	OnFullCancelLimitReject(id model.EngineID, requester model.AgentID)

	OnTrade(price model.Price, qty model.Qty, makerXID, takerXID model.EngineID, makerSide model.Side)

	OnMakerPartialFillLimit(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty)
	OnMakerFullFillLimit(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID)
	OnTakerPartialFillLimit(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty)
	OnTakerFullFillLimit(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID)

	OnMakerPartialFillMarket(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty)
	OnMakerFullFillMarket(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID)
	OnTakerPartialFillMarket(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty)
	OnTakerFullFillMarket(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID)

	OnOrderBookSnapshot(bids, asks []Level)

	OnAcknowledgeTriggerExpiration(id model.EngineID, timeout time.Duration)
	OnRejectTriggerExpiration(id model.EngineID, timeout time.Duration)
}
