package eventbus

import (
	"time"

	"github.com/marketsim/xsim/internal/model"
)

// --- Order intents (external producer -> exchange adapter) -----------

const (
	KindLimitOrder               = "LimitOrderEvent"
	KindMarketOrder              = "MarketOrderEvent"
	KindFullCancelLimitOrder     = "FullCancelLimitOrderEvent"
	KindPartialCancelLimitOrder  = "PartialCancelLimitOrderEvent"
	KindFullCancelMarketOrder    = "FullCancelMarketOrderEvent"
	KindPartialCancelMarketOrder = "PartialCancelMarketOrderEvent"
)

// LimitOrder requests a resting limit order, matched aggressively first.
type LimitOrder struct {
	Base
	Symbol  string
	Side    model.Side
	CID     model.ClientOrderID
	Price   model.Price
	Qty     model.Qty
	Timeout time.Duration
	Owner   model.AgentID
}

func (LimitOrder) Kind() string { return KindLimitOrder }

// MarketOrder requests an immediate fill against the resting book.
type MarketOrder struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Qty    model.Qty
	Owner  model.AgentID
}

func (MarketOrder) Kind() string { return KindMarketOrder }

// FullCancelLimitOrder requests cancellation of an entire resting limit
// order identified by the owner's own client order id.
type FullCancelLimitOrder struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Owner  model.AgentID
}

func (FullCancelLimitOrder) Kind() string { return KindFullCancelLimitOrder }

// PartialCancelLimitOrder requests reducing a resting limit order's
// remaining quantity by CancelQty.
type PartialCancelLimitOrder struct {
	Base
	Symbol    string
	Side      model.Side
	CID       model.ClientOrderID
	CancelQty model.Qty
	Owner     model.AgentID
}

func (PartialCancelLimitOrder) Kind() string { return KindPartialCancelLimitOrder }

// FullCancelMarketOrder is always rejected: market orders never rest.
type FullCancelMarketOrder struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Owner  model.AgentID
}

func (FullCancelMarketOrder) Kind() string { return KindFullCancelMarketOrder }

// PartialCancelMarketOrder is always rejected, for the same reason as
// FullCancelMarketOrder.
type PartialCancelMarketOrder struct {
	Base
	Symbol    string
	Side      model.Side
	CID       model.ClientOrderID
	CancelQty model.Qty
	Owner     model.AgentID
}

func (PartialCancelMarketOrder) Kind() string { return KindPartialCancelMarketOrder }
