package eventbus

import (
	"time"

	"github.com/marketsim/xsim/internal/model"
)

// --- Acknowledgments & rejections (exchange adapter -> requester) ----

const (
	KindLimitOrderAck                 = "LimitOrderAckEvent"
	KindMarketOrderAck                = "MarketOrderAckEvent"
	KindFullCancelLimitOrderAck       = "FullCancelLimitOrderAckEvent"
	KindFullCancelLimitOrderReject    = "FullCancelLimitOrderRejectEvent"
	KindPartialCancelLimitOrderAck    = "PartialCancelLimitOrderAckEvent"
	KindPartialCancelLimitOrderReject = "PartialCancelLimitOrderRejectEvent"
	KindFullCancelMarketOrderReject   = "FullCancelMarketOrderRejectEvent"
	KindPartialCancelMarketOrderRej   = "PartialCancelMarketOrderRejectEvent"
)

// LimitOrderAck acknowledges a limit order after any aggressive
// matching and any resulting rest. XID is the persistent engine id if
// any quantity rested, otherwise a transient id.
type LimitOrderAck struct {
	Base
	Symbol      string
	Side        model.Side
	CID         model.ClientOrderID
	XID         model.EngineID
	Price       model.Price
	OriginalQty model.Qty
	RestingQty  model.Qty
	Owner       model.AgentID
	Timeout     time.Duration
}

func (LimitOrderAck) Kind() string { return KindLimitOrderAck }

// MarketOrderAck acknowledges a market order; it never rests.
type MarketOrderAck struct {
	Base
	Symbol       string
	Side         model.Side
	CID          model.ClientOrderID
	XID          model.EngineID
	RequestedQty model.Qty
	ExecutedQty  model.Qty
	UnfilledQty  model.Qty
	Owner        model.AgentID
}

func (MarketOrderAck) Kind() string { return KindMarketOrderAck }

// FullCancelLimitOrderAck confirms a limit order was fully cancelled.
// Also emitted when a partial-cancel request happens to remove the
// whole remaining quantity.
type FullCancelLimitOrderAck struct {
	Base
	Symbol       string
	Side         model.Side
	CID          model.ClientOrderID
	XID          model.EngineID
	Price        model.Price
	CancelledQty model.Qty
	Owner        model.AgentID
}

func (FullCancelLimitOrderAck) Kind() string { return KindFullCancelLimitOrderAck }

// FullCancelLimitOrderReject is published when the target id is unknown
// to the adapter's mapping tables or unknown to the engine.
type FullCancelLimitOrderReject struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Owner  model.AgentID
}

func (FullCancelLimitOrderReject) Kind() string { return KindFullCancelLimitOrderReject }

// PartialCancelLimitOrderAck confirms a limit order's remaining quantity
// was reduced without fully cancelling it.
type PartialCancelLimitOrderAck struct {
	Base
	Symbol       string
	Side         model.Side
	CID          model.ClientOrderID
	XID          model.EngineID
	Price        model.Price
	CancelledQty model.Qty
	RemainingQty model.Qty
	Owner        model.AgentID
}

func (PartialCancelLimitOrderAck) Kind() string { return KindPartialCancelLimitOrderAck }

// PartialCancelLimitOrderReject is published for a partial-cancel aimed
// at an unknown or mistyped (market) id.
type PartialCancelLimitOrderReject struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Owner  model.AgentID
}

func (PartialCancelLimitOrderReject) Kind() string { return KindPartialCancelLimitOrderReject }

// FullCancelMarketOrderReject is always published in response to
// FullCancelMarketOrder.
type FullCancelMarketOrderReject struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Owner  model.AgentID
}

func (FullCancelMarketOrderReject) Kind() string { return KindFullCancelMarketOrderReject }

// PartialCancelMarketOrderReject is always published in response to
// PartialCancelMarketOrder.
type PartialCancelMarketOrderReject struct {
	Base
	Symbol string
	Side   model.Side
	CID    model.ClientOrderID
	Owner  model.AgentID
}

func (PartialCancelMarketOrderReject) Kind() string { return KindPartialCancelMarketOrderRej }
