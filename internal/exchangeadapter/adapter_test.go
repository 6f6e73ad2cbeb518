package exchangeadapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/xsim/internal/eventbus"
	"github.com/marketsim/xsim/internal/exchangeadapter"
	"github.com/marketsim/xsim/internal/model"
)

// recorder subscribes to an explicit set of topics and records every
// message delivered to it, so tests can assert on the delivered
// sequence rather than only final state.
type recorder struct {
	topics []string
	seen   []eventbus.Message
}

func (r *recorder) OnMessage(msg eventbus.Message, topic string, publisher model.AgentID, now model.Time, stream string, seq uint64) {
	r.seen = append(r.seen, msg)
}

func (r *recorder) SetupSubscriptions(bus *eventbus.Bus) {}

func newHarness(t *testing.T, symbol string) (*eventbus.Bus, *exchangeadapter.Adapter, model.AgentID) {
	t.Helper()
	bus := eventbus.NewBus(1, nil, nil)
	a := exchangeadapter.New(symbol, nil, nil)
	a.SetSelf(bus.Register(a))
	a.SetupSubscriptions(bus)
	env := bus.Register(&recorder{})
	return bus, a, env
}

func subscribeRecorder(bus *eventbus.Bus, topics ...string) *recorder {
	r := &recorder{topics: topics}
	id := bus.Register(r)
	for _, topic := range topics {
		bus.Subscribe(id, topic)
	}
	return r
}

func drain(bus *eventbus.Bus) {
	for {
		if _, ok := bus.Step(); !ok {
			return
		}
	}
}

func px(f float64) model.Price { return model.FromFloat(f) }
func qty(f float64) model.Qty  { return model.QtyFromFloat(f) }

func seedBook(bus *eventbus.Bus, env model.AgentID, symbol string) {
	seed := []eventbus.Message{
		&eventbus.LimitOrder{Symbol: symbol, Side: model.Buy, CID: 1, Price: px(99.9), Qty: qty(10), Owner: env},
		&eventbus.LimitOrder{Symbol: symbol, Side: model.Buy, CID: 2, Price: px(99.8), Qty: qty(5), Owner: env},
		&eventbus.LimitOrder{Symbol: symbol, Side: model.Sell, CID: 3, Price: px(100.1), Qty: qty(8), Owner: env},
		&eventbus.LimitOrder{Symbol: symbol, Side: model.Sell, CID: 4, Price: px(100.2), Qty: qty(12), Owner: env},
	}
	for _, msg := range seed {
		bus.Publish(env, eventbus.SymbolTopic(msg.Kind(), symbol), msg)
	}
	drain(bus)
}

func TestAdapter_SeedAndCross_SingleSegmentFullFill(t *testing.T) {
	const symbol = "BTC/USD"
	bus, _, env := newHarness(t, symbol)
	seedBook(bus, env, symbol)

	fills := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindTakerFullFillLimit, env))
	snaps := subscribeRecorder(bus, eventbus.SymbolTopic(eventbus.KindL2OrderBookSnapshot, symbol))

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindLimitOrder, symbol), &eventbus.LimitOrder{
		Symbol: symbol, Side: model.Buy, CID: 5, Price: px(100.15), Qty: qty(3), Owner: env,
	})
	drain(bus)

	require.Len(t, fills.seen, 1)
	fill := fills.seen[0].(*eventbus.TakerFullFillLimit)
	assert.Equal(t, px(100.1), fill.AvgPrice)
	assert.Equal(t, qty(3), fill.Cumulative)

	require.NotEmpty(t, snaps.seen)
	last := snaps.seen[len(snaps.seen)-1].(*eventbus.L2OrderBookSnapshot)
	require.Len(t, last.Asks, 2)
	assert.Equal(t, px(100.1), last.Asks[0].Price)
	assert.Equal(t, qty(5), last.Asks[0].Qty)
}

func TestAdapter_TwoSegmentAggressiveFill_PartialRests(t *testing.T) {
	const symbol = "BTC/USD"
	bus, _, env := newHarness(t, symbol)
	seedBook(bus, env, symbol)

	acks := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindLimitOrderAck, env))
	partials := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindTakerPartialFillLimit, env))

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindLimitOrder, symbol), &eventbus.LimitOrder{
		Symbol: symbol, Side: model.Buy, CID: 6, Price: px(100.15), Qty: qty(10), Owner: env,
	})
	drain(bus)

	require.Len(t, partials.seen, 1)
	p := partials.seen[0].(*eventbus.TakerPartialFillLimit)
	assert.Equal(t, qty(8), p.Cumulative)
	assert.Equal(t, qty(2), p.Leaves)
	assert.Equal(t, px(100.1), p.AvgPrice)

	require.Len(t, acks.seen, 1)
	ack := acks.seen[0].(*eventbus.LimitOrderAck)
	assert.Equal(t, qty(2), ack.RestingQty)
}

func TestAdapter_PartialCancelReducingToZeroEmitsFullCancelAck(t *testing.T) {
	const symbol = "BTC/USD"
	bus, _, env := newHarness(t, symbol)

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindLimitOrder, symbol), &eventbus.LimitOrder{
		Symbol: symbol, Side: model.Sell, CID: 1, Price: px(101), Qty: qty(5), Owner: env,
	})
	drain(bus)

	fullAcks := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindFullCancelLimitOrderAck, env))
	partialAcks := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindPartialCancelLimitOrderAck, env))

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindPartialCancelLimitOrder, symbol), &eventbus.PartialCancelLimitOrder{
		Symbol: symbol, Side: model.Sell, CID: 1, CancelQty: qty(5), Owner: env,
	})
	drain(bus)

	assert.Empty(t, partialAcks.seen, "a partial-cancel that empties the order must be reported as a full cancel")
	require.Len(t, fullAcks.seen, 1)
	ack := fullAcks.seen[0].(*eventbus.FullCancelLimitOrderAck)
	assert.Equal(t, qty(5), ack.CancelledQty)
}

func TestAdapter_UnknownCancelIsRejectedWithoutTouchingEngine(t *testing.T) {
	const symbol = "BTC/USD"
	bus, _, env := newHarness(t, symbol)

	rejects := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindFullCancelLimitOrderReject, env))

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindFullCancelLimitOrder, symbol), &eventbus.FullCancelLimitOrder{
		Symbol: symbol, Side: model.Buy, CID: 999, Owner: env,
	})
	drain(bus)

	require.Len(t, rejects.seen, 1)
}

func TestAdapter_MarketOrderCancelIsAlwaysRejected(t *testing.T) {
	const symbol = "BTC/USD"
	bus, _, env := newHarness(t, symbol)

	rejects := subscribeRecorder(bus, eventbus.AgentTopic(eventbus.KindFullCancelMarketOrderReject, env))

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindFullCancelMarketOrder, symbol), &eventbus.FullCancelMarketOrder{
		Symbol: symbol, Side: model.Buy, CID: 1, Owner: env,
	})
	drain(bus)

	require.Len(t, rejects.seen, 1)
}

func TestAdapter_BangFlushClearsBookAndRepublishesEmptySnapshot(t *testing.T) {
	const symbol = "BTC/USD"
	bus, a, env := newHarness(t, symbol)
	seedBook(bus, env, symbol)

	snaps := subscribeRecorder(bus, eventbus.SymbolTopic(eventbus.KindL2OrderBookSnapshot, symbol))

	bus.Publish(env, eventbus.Topic(eventbus.KindBang), &eventbus.Bang{})
	drain(bus)

	require.Len(t, snaps.seen, 1)
	snap := snaps.seen[0].(*eventbus.L2OrderBookSnapshot)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)

	bids, asks := a.Engine().Snapshot()
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

func TestAdapter_TwoSuccessiveBangsAreIndistinguishableFromOne(t *testing.T) {
	const symbol = "BTC/USD"
	bus, a, env := newHarness(t, symbol)
	seedBook(bus, env, symbol)

	bus.Publish(env, eventbus.Topic(eventbus.KindBang), &eventbus.Bang{})
	drain(bus)
	bids1, asks1 := a.Engine().Snapshot()

	bus.Publish(env, eventbus.Topic(eventbus.KindBang), &eventbus.Bang{})
	drain(bus)
	bids2, asks2 := a.Engine().Snapshot()

	assert.Equal(t, bids1, bids2)
	assert.Equal(t, asks1, asks2)
}

func TestAdapter_NonCrossingLimitThenCancelRestoresSnapshot(t *testing.T) {
	const symbol = "BTC/USD"
	bus, a, env := newHarness(t, symbol)
	seedBook(bus, env, symbol)
	bidsBefore, asksBefore := a.Engine().Snapshot()

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindLimitOrder, symbol), &eventbus.LimitOrder{
		Symbol: symbol, Side: model.Buy, CID: 7, Price: px(90), Qty: qty(1), Owner: env,
	})
	drain(bus)

	bus.Publish(env, eventbus.SymbolTopic(eventbus.KindFullCancelLimitOrder, symbol), &eventbus.FullCancelLimitOrder{
		Symbol: symbol, Side: model.Buy, CID: 7, Owner: env,
	})
	drain(bus)

	bidsAfter, asksAfter := a.Engine().Snapshot()
	assert.Equal(t, bidsBefore, bidsAfter)
	assert.Equal(t, asksBefore, asksAfter)
}
