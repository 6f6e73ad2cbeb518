package eventbus

import (
	"fmt"

	"github.com/marketsim/xsim/internal/model"
)

// Topic returns the global topic string for a message kind, e.g.
// "LimitOrderEvent". Topic equality is exact string equality; there is
// no wildcard matching.
func Topic(kind string) string {
	return kind
}

// ScopedTopic returns a symbol-scoped or agent-scoped topic string, e.g.
// "LimitOrderEvent.BTC/USD" or "LimitOrderAckEvent.7".
func ScopedTopic(kind, scope string) string {
	return kind + "." + scope
}

// AgentTopic scopes a topic to an agent id rendered as decimal, the
// convention used for per-trader ack/reject/fill delivery and for
// watchdog self-targeted timers.
func AgentTopic(kind string, agent model.AgentID) string {
	return ScopedTopic(kind, fmt.Sprintf("%d", int64(agent)))
}

// SymbolTopic scopes a topic to a trading symbol, the convention used
// for market-data and order-intent topics.
func SymbolTopic(kind, symbol string) string {
	return ScopedTopic(kind, symbol)
}

// Stream id conventions. The bus treats these as opaque; only adapters
// and agents need to agree on them.

// OrderStream returns the stream id for one order's lifecycle.
func OrderStream(owner model.AgentID, cid model.ClientOrderID) string {
	return fmt.Sprintf("order_%d_%d", int64(owner), int64(cid))
}

// L2Stream returns the stream id for a symbol's L2 snapshot feed.
func L2Stream(symbol string) string {
	return "l2_stream_" + symbol
}

// ExpireCheckStream returns the stream id for one engine id's expiration
// timer.
func ExpireCheckStream(id model.EngineID) string {
	return fmt.Sprintf("expire_check_%d", int64(id))
}
