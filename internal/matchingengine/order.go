package matchingengine

import (
	"container/list"
	"time"

	"github.com/marketsim/xsim/internal/model"
)

// Order is one resting or in-flight order inside a single price level's
// FIFO queue. Only resting limit orders live in the book for any length
// of time; market orders and aggressively-filled limit orders pass
// through the matching loop without ever being constructed here at all.
type Order struct {
	ID        model.EngineID
	Side      model.Side
	Price     model.Price
	Original  model.Qty
	Remaining model.Qty
	Owner     model.AgentID
	Timeout   time.Duration

	elem *list.Element
}

// location is the book's per-id index entry: everything needed to find
// and splice an order out of its price level in O(1) once its price is
// known.
type location struct {
	side  model.Side
	price model.Price
	order *Order
}
