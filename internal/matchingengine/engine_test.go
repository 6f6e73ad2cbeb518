package matchingengine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/xsim/internal/matchingengine"
	"github.com/marketsim/xsim/internal/model"
)

// spyCallbacks records every callback invocation so tests can assert on
// the exact sequence the engine produced rather than only final state.
type spyCallbacks struct {
	trades         []tradeCall
	limitAcks      []limitAckCall
	marketAcks     []marketAckCall
	makerPartial   []fillCall
	makerFull      []fillCall
	takerPartial   []fillCall
	takerFull      []fillCall
	fullCancels    []cancelCall
	fullRejects    []model.EngineID
	partialCancels []partialCancelCall
	partialRejects []model.EngineID
	snapshots      []snapshotCall
	expireAcks     []model.EngineID
	expireRejects  []model.EngineID
}

type tradeCall struct {
	price              model.Price
	qty                model.Qty
	makerXID, takerXID model.EngineID
	makerSide          model.Side
}

type limitAckCall struct {
	id                  model.EngineID
	side                model.Side
	price               model.Price
	originalQty, resting model.Qty
	owner               model.AgentID
}

type marketAckCall struct {
	side                        model.Side
	requested, executed, unfilled model.Qty
}

type fillCall struct {
	xid           model.EngineID
	side          model.Side
	price         model.Price
	qty           model.Qty
	owner         model.AgentID
	leavesOrTotal model.Qty
}

type cancelCall struct {
	id    model.EngineID
	price model.Price
	qty   model.Qty
	side  model.Side
}

type partialCancelCall struct {
	id    model.EngineID
	price model.Price
	delta model.Qty
}

type snapshotCall struct {
	bids, asks []matchingengine.Level
}

func (s *spyCallbacks) OnLimitOrderAcknowledged(id model.EngineID, side model.Side, price model.Price, originalQty, restingQty model.Qty, owner model.AgentID, timeout time.Duration) {
	s.limitAcks = append(s.limitAcks, limitAckCall{id, side, price, originalQty, restingQty, owner})
}
func (s *spyCallbacks) OnMarketOrderAcknowledged(side model.Side, requested, executed, unfilled model.Qty, owner model.AgentID) {
	s.marketAcks = append(s.marketAcks, marketAckCall{side, requested, executed, unfilled})
}
func (s *spyCallbacks) OnPartialCancelLimit(id model.EngineID, price model.Price, delta model.Qty, requester model.AgentID) {
	s.partialCancels = append(s.partialCancels, partialCancelCall{id, price, delta})
}
func (s *spyCallbacks) OnPartialCancelLimitReject(id model.EngineID, requester model.AgentID) {
	s.partialRejects = append(s.partialRejects, id)
}
func (s *spyCallbacks) OnFullCancelLimit(id model.EngineID, price model.Price, qty model.Qty, side model.Side, requester model.AgentID) {
	s.fullCancels = append(s.fullCancels, cancelCall{id, price, qty, side})
}
func (s *spyCallbacks) OnFullCancelLimitReject(id model.EngineID, requester model.AgentID) {
	s.fullRejects = append(s.fullRejects, id)
}
func (s *spyCallbacks) OnTrade(price model.Price, qty model.Qty, makerXID, takerXID model.EngineID, makerSide model.Side) {
	s.trades = append(s.trades, tradeCall{price, qty, makerXID, takerXID, makerSide})
}
func (s *spyCallbacks) OnMakerPartialFillLimit(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	s.makerPartial = append(s.makerPartial, fillCall{xid, side, priceSeg, qtySeg, owner, leaves})
}
func (s *spyCallbacks) OnMakerFullFillLimit(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	s.makerFull = append(s.makerFull, fillCall{xid, side, priceLast, 0, owner, totalQty})
}
func (s *spyCallbacks) OnTakerPartialFillLimit(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	s.takerPartial = append(s.takerPartial, fillCall{xid, side, priceSeg, qtySeg, owner, leaves})
}
func (s *spyCallbacks) OnTakerFullFillLimit(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	s.takerFull = append(s.takerFull, fillCall{xid, side, priceLast, 0, owner, totalQty})
}
func (s *spyCallbacks) OnMakerPartialFillMarket(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	s.makerPartial = append(s.makerPartial, fillCall{xid, side, priceSeg, qtySeg, owner, leaves})
}
func (s *spyCallbacks) OnMakerFullFillMarket(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	s.makerFull = append(s.makerFull, fillCall{xid, side, priceLast, 0, owner, totalQty})
}
func (s *spyCallbacks) OnTakerPartialFillMarket(xid model.EngineID, side model.Side, priceSeg model.Price, qtySeg model.Qty, owner model.AgentID, leaves model.Qty) {
	s.takerPartial = append(s.takerPartial, fillCall{xid, side, priceSeg, qtySeg, owner, leaves})
}
func (s *spyCallbacks) OnTakerFullFillMarket(xid model.EngineID, side model.Side, priceLast model.Price, totalQty model.Qty, owner model.AgentID) {
	s.takerFull = append(s.takerFull, fillCall{xid, side, priceLast, 0, owner, totalQty})
}
func (s *spyCallbacks) OnOrderBookSnapshot(bids, asks []matchingengine.Level) {
	s.snapshots = append(s.snapshots, snapshotCall{bids, asks})
}
func (s *spyCallbacks) OnAcknowledgeTriggerExpiration(id model.EngineID, timeout time.Duration) {
	s.expireAcks = append(s.expireAcks, id)
}
func (s *spyCallbacks) OnRejectTriggerExpiration(id model.EngineID, timeout time.Duration) {
	s.expireRejects = append(s.expireRejects, id)
}

func px(f float64) model.Price { return model.FromFloat(f) }
func qty(f float64) model.Qty  { return model.QtyFromFloat(f) }

func seedBook(t *testing.T, e *matchingengine.Engine) {
	t.Helper()
	e.PlaceLimit(model.Buy, px(99.9), qty(10), 0, 1)
	e.PlaceLimit(model.Buy, px(99.8), qty(5), 0, 1)
	e.PlaceLimit(model.Sell, px(100.1), qty(8), 0, 2)
	e.PlaceLimit(model.Sell, px(100.2), qty(12), 0, 2)
}

func TestEngine_SeedAndCross_SingleSegmentFullFill(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	seedBook(t, e)
	spy.trades = nil
	spy.takerFull = nil

	takerID := e.PlaceLimit(model.Buy, px(100.15), qty(3), 0, 3)

	require.Len(t, spy.trades, 1)
	assert.Equal(t, px(100.1), spy.trades[0].price)
	assert.Equal(t, qty(3), spy.trades[0].qty)

	require.Len(t, spy.takerFull, 1)
	assert.Equal(t, takerID, spy.takerFull[0].xid)
	assert.Equal(t, px(100.1), spy.takerFull[0].price)

	bids, asks := e.Snapshot()
	_ = bids
	require.Len(t, asks, 2)
	assert.Equal(t, px(100.1), asks[0].Price)
	assert.Equal(t, qty(5), asks[0].Qty)
	assert.Equal(t, px(100.2), asks[1].Price)
	assert.Equal(t, qty(12), asks[1].Qty)
}

func TestEngine_TwoSegmentAggressiveFill_StopsAtLimitPrice(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	seedBook(t, e)
	spy.trades = nil
	spy.takerPartial = nil
	spy.limitAcks = nil

	takerID := e.PlaceLimit(model.Buy, px(100.15), qty(10), 0, 3)

	require.Len(t, spy.trades, 1, "the 100.20 ask must NOT cross a 100.15 buy limit")
	assert.Equal(t, px(100.1), spy.trades[0].price)
	assert.Equal(t, qty(8), spy.trades[0].qty)

	require.Len(t, spy.takerPartial, 1)
	assert.Equal(t, qty(2), spy.takerPartial[0].leavesOrTotal)
	assert.Equal(t, qty(8), spy.takerPartial[0].qty)

	require.Len(t, spy.limitAcks, 1)
	assert.Equal(t, qty(2), spy.limitAcks[0].resting)
	assert.Equal(t, takerID, spy.limitAcks[0].id)
}

func TestEngine_NonCrossingLimitRestsWithoutFills(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)

	id := e.PlaceLimit(model.Buy, px(95), qty(1), 0, 5)
	assert.Empty(t, spy.trades)
	require.Len(t, spy.limitAcks, 1)
	assert.Equal(t, qty(1), spy.limitAcks[0].resting)
	assert.Less(t, int64(id), int64(model.TransientStart))
}

func TestEngine_CancelRestoresEmptyBook(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	id := e.PlaceLimit(model.Sell, px(101), qty(4), 0, 7)

	ok := e.Cancel(id, 7)
	assert.True(t, ok)
	require.Len(t, spy.fullCancels, 1)

	_, asks := e.Snapshot()
	assert.Empty(t, asks)
}

func TestEngine_CancelUnknownIDRejects(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	ok := e.Cancel(999, 1)
	assert.False(t, ok)
	assert.Equal(t, []model.EngineID{999}, spy.fullRejects)
}

func TestEngine_PartialCancelReducingToZeroIsCallerResponsibility(t *testing.T) {
	// The adapter turns a partial-cancel-to-zero into a full cancel
	// before calling the engine; ModifyQuantity itself is never asked to
	// reduce to zero in that flow, but must still behave sanely (as
	// Cancel) if it is.
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	id := e.PlaceLimit(model.Sell, px(101), qty(5), 0, 7)

	ok := e.ModifyQuantity(id, 0, 7)
	assert.True(t, ok)
	require.Len(t, spy.fullCancels, 1)
	assert.Equal(t, qty(5), spy.fullCancels[0].qty)
}

func TestEngine_ModifyQuantityReduceInPlace(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	id := e.PlaceLimit(model.Sell, px(101), qty(5), 0, 7)

	ok := e.ModifyQuantity(id, qty(2), 7)
	assert.True(t, ok)
	require.Len(t, spy.partialCancels, 1)
	assert.Equal(t, qty(3), spy.partialCancels[0].delta)

	_, asks := e.Snapshot()
	require.Len(t, asks, 1)
	assert.Equal(t, qty(2), asks[0].Qty)
}

func TestEngine_ModifyQuantityIncreaseIsRejected(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	id := e.PlaceLimit(model.Sell, px(101), qty(5), 0, 7)

	ok := e.ModifyQuantity(id, qty(9), 7)
	assert.False(t, ok)
	assert.Equal(t, []model.EngineID{id}, spy.partialRejects)
}

func TestEngine_CancelExpiredAcksOnSuccessRejectsOnMiss(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	id := e.PlaceLimit(model.Buy, px(95), qty(1), 5*time.Second, 9)

	ok := e.CancelExpired(id, 5*time.Second)
	assert.True(t, ok)
	assert.Equal(t, []model.EngineID{id}, spy.expireAcks)

	ok = e.CancelExpired(id, 5*time.Second)
	assert.False(t, ok)
	assert.Equal(t, []model.EngineID{id}, spy.expireRejects)
}

func TestEngine_MarketOrderNeverRests(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	seedBook(t, e)
	spy.marketAcks = nil

	id := e.PlaceMarket(model.Sell, qty(100), 3)
	assert.GreaterOrEqual(t, int64(id), int64(model.TransientStart))

	require.Len(t, spy.marketAcks, 1)
	assert.Equal(t, qty(15), spy.marketAcks[0].executed)
	assert.Equal(t, qty(85), spy.marketAcks[0].unfilled)
}

func TestEngine_FlushResetsEverything(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	seedBook(t, e)

	e.Flush()
	bids, asks := e.Snapshot()
	assert.Empty(t, bids)
	assert.Empty(t, asks)

	id := e.PlaceLimit(model.Buy, px(1), qty(1), 0, 1)
	assert.Equal(t, model.EngineID(1), id)
}

func TestEngine_SelfTradeIsNotPrevented(t *testing.T) {
	spy := &spyCallbacks{}
	e := matchingengine.New(spy)
	e.PlaceLimit(model.Sell, px(100), qty(5), 0, 42)

	id := e.PlaceLimit(model.Buy, px(100), qty(5), 0, 42)
	require.Len(t, spy.trades, 1)
	assert.Equal(t, qty(5), spy.trades[0].qty)
	_ = id
}
