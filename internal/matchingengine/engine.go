// Package matchingengine implements a single-symbol, price-time-priority
// limit order book: aggressive matching, resting, cancellation,
// quantity modification, and expiration, reported entirely through the
// Callbacks interface rather than return values.
package matchingengine

import (
	"time"

	"github.com/marketsim/xsim/internal/model"
)

// segment is one matched quantity at one price, accumulated while the
// taker crosses the book, and replayed against Callbacks once the
// taker's final engine id is known.
type segment struct {
	price     model.Price
	qty       model.Qty
	makerXID  model.EngineID
	makerSide model.Side
}

// Engine is one symbol's order book plus id-allocation state. It holds
// no reference to any bus topic or message type; the exchange adapter
// is the only caller.
type Engine struct {
	bids *book
	asks *book

	index map[model.EngineID]*location

	nextPersistent model.EngineID
	nextTransient  model.EngineID

	callbacks Callbacks
}

// New constructs an empty engine that reports through cb.
func New(cb Callbacks) *Engine {
	e := &Engine{callbacks: cb}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.bids = newBidBook()
	e.asks = newAskBook()
	e.index = make(map[model.EngineID]*location)
	e.nextPersistent = 1
	e.nextTransient = model.TransientStart
}

func (e *Engine) allocPersistent() model.EngineID {
	id := e.nextPersistent
	e.nextPersistent++
	return id
}

func (e *Engine) allocTransient() model.EngineID {
	id := e.nextTransient
	e.nextTransient++
	return id
}

func (e *Engine) restingBook(side model.Side) *book {
	if side == model.Buy {
		return e.bids
	}
	return e.asks
}

func (e *Engine) oppositeBook(side model.Side) *book {
	return e.restingBook(side.Opposite())
}

func crosses(isMarket bool, side model.Side, limit model.Price, top model.Price) bool {
	if isMarket {
		return true
	}
	if side == model.Buy {
		return top <= limit
	}
	return top >= limit
}

// dryRunFill simulates crossing without mutating the book, to learn how
// much of qty would be filled. Used to decide, before running the real
// match, whether the order will end up resting (and therefore needs a
// persistent id) or will fill away entirely (transient id); the id must
// be settled before the first taker fill callback can reference it.
func (e *Engine) dryRunFill(opp *book, qty model.Qty, isMarket bool, side model.Side, limit model.Price) model.Qty {
	var filled model.Qty
	it := opp.levels.Iterator()
	for it.Next() && filled < qty {
		price := model.Price(it.Key())
		if !crosses(isMarket, side, limit, price) {
			break
		}
		queue := it.Value()
		for el := queue.Front(); el != nil && filled < qty; el = el.Next() {
			ord := el.Value.(*Order)
			remaining := qty - filled
			take := ord.Remaining
			if remaining < take {
				take = remaining
			}
			filled += take
		}
	}
	return filled
}

// matchResult carries the outcome of the real (mutating) matching pass.
type matchResult struct {
	cumulative model.Qty
	takerSide  model.Side
	segments   []segment
}

// runMatch performs the actual aggressive match, mutating the opposite
// book and firing maker-side callbacks inline (the maker's final id is
// always already known: it is that resting order's own id). Taker-side
// segments are buffered and returned so the caller can replay them once
// the taker's own final id has been decided.
func (e *Engine) runMatch(side model.Side, qty model.Qty, limit model.Price, isMarketOrder bool) matchResult {
	opp := e.oppositeBook(side)
	res := matchResult{takerSide: side}

	for res.cumulative < qty {
		top := opp.top()
		if top == nil {
			break
		}
		if !crosses(isMarketOrder, side, limit, top.Price) {
			break
		}

		remaining := qty - res.cumulative
		segQty := top.Remaining
		if remaining < segQty {
			segQty = remaining
		}
		segPrice := top.Price

		top.Remaining -= segQty
		res.cumulative += segQty
		res.segments = append(res.segments, segment{price: segPrice, qty: segQty, makerXID: top.ID, makerSide: top.Side})

		if top.Remaining == 0 {
			e.removeResting(top)
			if isMarketOrder {
				e.callbacks.OnMakerFullFillMarket(top.ID, top.Side, segPrice, top.Original, top.Owner)
			} else {
				e.callbacks.OnMakerFullFillLimit(top.ID, top.Side, segPrice, top.Original, top.Owner)
			}
		} else {
			if isMarketOrder {
				e.callbacks.OnMakerPartialFillMarket(top.ID, top.Side, segPrice, segQty, top.Owner, top.Remaining)
			} else {
				e.callbacks.OnMakerPartialFillLimit(top.ID, top.Side, segPrice, segQty, top.Owner, top.Remaining)
			}
		}
	}
	return res
}

func (e *Engine) removeResting(ord *Order) {
	e.restingBook(ord.Side).remove(ord)
	delete(e.index, ord.ID)
}

func (e *Engine) replayTakerSegments(segments []segment, cumulative, originalQty model.Qty, id model.EngineID, side model.Side, owner model.AgentID, isMarketKind bool) {
	running := model.Qty(0)
	for i, seg := range segments {
		e.callbacks.OnTrade(seg.price, seg.qty, seg.makerXID, id, seg.makerSide)

		running += seg.qty
		last := i == len(segments)-1
		if last && cumulative == originalQty {
			if isMarketKind {
				e.callbacks.OnTakerFullFillMarket(id, side, seg.price, originalQty, owner)
			} else {
				e.callbacks.OnTakerFullFillLimit(id, side, seg.price, originalQty, owner)
			}
			continue
		}
		leaves := originalQty - running
		if isMarketKind {
			e.callbacks.OnTakerPartialFillMarket(id, side, seg.price, seg.qty, owner, leaves)
		} else {
			e.callbacks.OnTakerPartialFillLimit(id, side, seg.price, seg.qty, owner, leaves)
		}
	}
}

// PlaceLimit matches aggressively, rests any leftover quantity,
// acknowledges, and then replays the taker's own fills. Maker-side
// fills fire inline during the match; the acknowledgment always
// precedes the taker-side fill callbacks.
func (e *Engine) PlaceLimit(side model.Side, price model.Price, qty model.Qty, timeout time.Duration, owner model.AgentID) model.EngineID {
	opp := e.oppositeBook(side)
	wouldFill := e.dryRunFill(opp, qty, false, side, price)
	willRest := wouldFill < qty

	res := e.runMatch(side, qty, price, false)

	var id model.EngineID
	restingQty := model.Qty(0)
	if willRest {
		id = e.allocPersistent()
		restingQty = qty - res.cumulative
		ord := &Order{ID: id, Side: side, Price: price, Original: qty, Remaining: restingQty, Owner: owner, Timeout: timeout}
		ord.elem = e.restingBook(side).append(ord)
		e.index[id] = &location{side: side, price: price, order: ord}
	} else {
		id = e.allocTransient()
	}

	e.callbacks.OnLimitOrderAcknowledged(id, side, price, qty, restingQty, owner, timeout)

	if res.cumulative > 0 {
		e.replayTakerSegments(res.segments, res.cumulative, qty, id, side, owner, false)
	}
	return id
}

// PlaceMarket matches aggressively against all crossable liquidity with
// no price limit and never rests. As with PlaceLimit, the
// acknowledgment precedes the taker-side fill callbacks.
func (e *Engine) PlaceMarket(side model.Side, qty model.Qty, owner model.AgentID) model.EngineID {
	res := e.runMatch(side, qty, 0, true)
	id := e.allocTransient()

	unfilled := qty - res.cumulative
	e.callbacks.OnMarketOrderAcknowledged(side, qty, res.cumulative, unfilled, owner)

	if res.cumulative > 0 {
		e.replayTakerSegments(res.segments, res.cumulative, qty, id, side, owner, true)
	}
	return id
}

// RemainingQty returns a resting order's current remaining quantity, for
// callers (the exchange adapter's partial-cancel handler) that need to
// compute a delta before deciding whether to cancel or modify.
func (e *Engine) RemainingQty(id model.EngineID) (model.Qty, bool) {
	loc, ok := e.index[id]
	if !ok {
		return 0, false
	}
	return loc.order.Remaining, true
}

// Cancel removes a resting limit order outright.
func (e *Engine) Cancel(id model.EngineID, requester model.AgentID) bool {
	loc, ok := e.index[id]
	if !ok {
		e.callbacks.OnFullCancelLimitReject(id, requester)
		return false
	}
	qty := loc.order.Remaining
	side := loc.order.Side
	price := loc.order.Price
	e.removeResting(loc.order)
	e.callbacks.OnFullCancelLimit(id, price, qty, side, requester)
	return true
}

// ModifyQuantity reduces a resting order's quantity in place, keeping
// its time priority. An increase is rejected rather than re-queued.
func (e *Engine) ModifyQuantity(id model.EngineID, newQty model.Qty, requester model.AgentID) bool {
	loc, ok := e.index[id]
	if !ok {
		e.callbacks.OnPartialCancelLimitReject(id, requester)
		return false
	}
	if newQty == 0 {
		return e.Cancel(id, requester)
	}
	if newQty > loc.order.Remaining {
		e.callbacks.OnPartialCancelLimitReject(id, requester)
		return false
	}
	delta := loc.order.Remaining - newQty
	loc.order.Remaining = newQty
	e.callbacks.OnPartialCancelLimit(id, loc.order.Price, delta, requester)
	return true
}

// CancelExpired is Cancel with expiration-specific callbacks.
func (e *Engine) CancelExpired(id model.EngineID, timeout time.Duration) bool {
	loc, ok := e.index[id]
	if !ok {
		e.callbacks.OnRejectTriggerExpiration(id, timeout)
		return false
	}
	e.removeResting(loc.order)
	e.callbacks.OnAcknowledgeTriggerExpiration(id, timeout)
	return true
}

// Snapshot returns the current bid and ask levels and always reports
// them through Callbacks.OnOrderBookSnapshot; the adapter's
// implementation of that callback is where "only publish if changed"
// is decided, since the engine itself has no notion of a
// previously-published snapshot.
func (e *Engine) Snapshot() (bids, asks []Level) {
	bids = e.bids.snapshot()
	asks = e.asks.snapshot()
	e.callbacks.OnOrderBookSnapshot(bids, asks)
	return bids, asks
}

// Flush drops all book state and resets id counters.
func (e *Engine) Flush() {
	e.reset()
}
