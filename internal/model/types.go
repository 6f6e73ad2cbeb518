// Package model holds the scaled-integer value types shared by the bus,
// the matching engine and the exchange adapter, so none of the three
// needs to import the others just to talk about a price or a side.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Time is a point on the simulation's virtual clock: nanoseconds since
// the simulation's epoch (T=0 at construction). It is never derived from
// the wall clock.
type Time int64

// Add returns t advanced by d.
func (t Time) Add(d time.Duration) Time {
	return t + Time(d.Nanoseconds())
}

// Sub returns the duration between two virtual times.
func (t Time) Sub(o Time) time.Duration {
	return time.Duration(t-o) * time.Nanosecond
}

// Before reports whether t is strictly earlier than o.
func (t Time) Before(o Time) bool { return t < o }

// Scale is the fixed-point scale factor shared by every Price and Qty in
// the simulator. A scaled value of Scale represents 1.0 of the
// underlying unit.
const Scale int64 = 1e8

// Price is a fixed-point price, scaled by Scale.
type Price int64

// Qty is a fixed-point quantity, scaled by Scale.
type Qty int64

// AgentID identifies a processor registered with the bus.
type AgentID int64

// ClientOrderID is chosen by the owning agent.
type ClientOrderID int64

// EngineID is assigned by the matching engine.
type EngineID int64

// TransientStart is the first id in the engine's transient range. Market
// orders and limit orders that fill away without resting are assigned
// ids at or above this value; resting limit orders are assigned ids
// below it. Keeping the ranges disjoint lets the adapter decide cheaply
// whether an id can ever appear in a global (persistent-only) topic.
const TransientStart EngineID = 1_000_000_000

// Side is one of Buy or Sell.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind distinguishes a resting limit order from a transient market
// order in the adapter's kind map, so a mistyped operation (e.g. a
// partial-cancel aimed at a market order) can be rejected without ever
// calling into the engine.
type OrderKind uint8

const (
	KindLimit OrderKind = iota
	KindMarket
)

// ToFloat converts a scaled Price to a float64, for display and for
// agents that work in natural units.
func ToFloat(p Price) float64 {
	f, _ := decimal.New(int64(p), 0).Div(decimal.New(Scale, 0)).Float64()
	return f
}

// FromFloat converts a float64 price into the shared fixed-point scale,
// rounding to the nearest representable unit. decimal.NewFromFloat is
// used instead of a naive `int64(f * float64(Scale))` so that the
// conversion is exact for any value that was itself produced by
// ToFloat, instead of compounding binary-float rounding error.
func FromFloat(f float64) Price {
	d := decimal.NewFromFloat(f).Mul(decimal.New(Scale, 0))
	return Price(d.Round(0).IntPart())
}

// QtyToFloat converts a scaled Qty to a float64.
func QtyToFloat(q Qty) float64 {
	return ToFloat(Price(q))
}

// QtyFromFloat converts a float64 quantity into the shared fixed-point
// scale.
func QtyFromFloat(f float64) Qty {
	return Qty(FromFloat(f))
}
