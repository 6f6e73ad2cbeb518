package eventbus

import "github.com/marketsim/xsim/internal/model"

// Message is the closed sum type of every wire message the simulator
// knows how to route. There is no inheritance hierarchy: each concrete
// type below implements Message by embedding Base, and agents dispatch
// on concrete type with a type switch (see Processor).
type Message interface {
	Kind() string
	CreatedAt() model.Time
}

// Base carries the one field every message shares: the virtual-clock
// instant it was created at. Embed it first in every concrete message
// type.
type Base struct {
	Created model.Time
}

// CreatedAt implements Message.
func (b Base) CreatedAt() model.Time { return b.Created }

// PriceLevel is one row of an L2 snapshot.
type PriceLevel struct {
	Price model.Price
	Qty   model.Qty
}

// --- Market data -----------------------------------------------------

const KindL2OrderBookSnapshot = "LTwoOrderBookEvent"

// L2OrderBookSnapshot is the flattened bid/ask depth for a symbol,
// published whenever the book changes.
type L2OrderBookSnapshot struct {
	Base
	Symbol string
	Bids   []PriceLevel // descending by price
	Asks   []PriceLevel // ascending by price
}

func (L2OrderBookSnapshot) Kind() string { return KindL2OrderBookSnapshot }
