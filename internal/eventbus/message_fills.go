package eventbus

import "github.com/marketsim/xsim/internal/model"

// --- Fills & trades ----------------------------------------------------
//
// One pair of (maker, taker) x (partial, full) events per order kind,
// plus a symmetric Trade event carrying both sides' ids for consumers
// that just want tape data.

const (
	KindMakerPartialFillLimit  = "MakerPartialFillLimitOrderEvent"
	KindMakerFullFillLimit     = "MakerFullFillLimitOrderEvent"
	KindTakerPartialFillLimit  = "TakerPartialFillLimitOrderEvent"
	KindTakerFullFillLimit     = "TakerFullFillLimitOrderEvent"
	KindMakerPartialFillMarket = "MakerPartialFillMarketOrderEvent"
	KindMakerFullFillMarket    = "MakerFullFillMarketOrderEvent"
	KindTakerPartialFillMarket = "TakerPartialFillMarketOrderEvent"
	KindTakerFullFillMarket    = "TakerFullFillMarketOrderEvent"
	KindTrade                  = "TradeEvent"
)

// Fill is shared by all eight maker/taker x partial/full x limit/market
// fill messages. PriceSeg/QtySeg are this segment's price and quantity,
// never a running total. Leaves/Cumulative/AvgPrice are the
// adapter-computed cumulative state for XID at the time this fill was
// emitted.
type Fill struct {
	Base
	Symbol     string
	Side       model.Side // the side of the order this fill is reported for
	CID        model.ClientOrderID
	XID        model.EngineID
	Owner      model.AgentID
	PriceSeg   model.Price
	QtySeg     model.Qty
	Leaves     model.Qty
	Cumulative model.Qty
	AvgPrice   model.Price
}

type MakerPartialFillLimit struct{ Fill }

func (MakerPartialFillLimit) Kind() string { return KindMakerPartialFillLimit }

type MakerFullFillLimit struct{ Fill }

func (MakerFullFillLimit) Kind() string { return KindMakerFullFillLimit }

type TakerPartialFillLimit struct{ Fill }

func (TakerPartialFillLimit) Kind() string { return KindTakerPartialFillLimit }

type TakerFullFillLimit struct{ Fill }

func (TakerFullFillLimit) Kind() string { return KindTakerFullFillLimit }

type MakerPartialFillMarket struct{ Fill }

func (MakerPartialFillMarket) Kind() string { return KindMakerPartialFillMarket }

type MakerFullFillMarket struct{ Fill }

func (MakerFullFillMarket) Kind() string { return KindMakerFullFillMarket }

type TakerPartialFillMarket struct{ Fill }

func (TakerPartialFillMarket) Kind() string { return KindTakerPartialFillMarket }

type TakerFullFillMarket struct{ Fill }

func (TakerFullFillMarket) Kind() string { return KindTakerFullFillMarket }

// Trade is the tape event for a single matched segment. Price is the
// resting (maker) order's price.
type Trade struct {
	Base
	Symbol    string
	Price     model.Price
	Qty       model.Qty
	MakerXID  model.EngineID
	TakerXID  model.EngineID
	MakerSide model.Side
}

func (Trade) Kind() string { return KindTrade }
