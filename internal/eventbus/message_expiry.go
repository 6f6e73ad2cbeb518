package eventbus

import (
	"time"

	"github.com/marketsim/xsim/internal/model"
)

// --- Expiration control (watchdog <-> exchange adapter) ---------------

const (
	KindCheckLimitOrderExpiration   = "CheckLimitOrderExpirationEvent"
	KindTriggerExpiredLimitOrder    = "TriggerExpiredLimitOrderEvent"
	KindAckTriggerExpiredLimitOrder = "AckTriggerExpiredLimitOrderEvent"
	KindRejectTriggerExpiredLimit   = "RejectTriggerExpiredLimitOrderEvent"
	KindLimitOrderExpired           = "LimitOrderExpiredEvent"
)

// CheckLimitOrderExpiration is a self-scheduled timer the watchdog sets
// for itself; it fires on topic
// CheckLimitOrderExpirationEvent.<watchdogAgentID>.
type CheckLimitOrderExpiration struct {
	Base
	Target   model.EngineID
	Lifetime time.Duration
}

func (CheckLimitOrderExpiration) Kind() string { return KindCheckLimitOrderExpiration }

// TriggerExpiredLimitOrder is published by the watchdog to the exchange
// adapter, scoped by symbol, when a tracked order's timer fires.
type TriggerExpiredLimitOrder struct {
	Base
	Symbol   string
	Target   model.EngineID
	Lifetime time.Duration
	Placer   model.AgentID // the order's original owner
	Sender   model.AgentID // the watchdog instance that sent the trigger
}

func (TriggerExpiredLimitOrder) Kind() string { return KindTriggerExpiredLimitOrder }

// AckTriggerExpiredLimitOrder is published by the adapter back to the
// trigger sender (scoped by that agent id) when the engine confirms the
// order was still resting and is now cancelled.
type AckTriggerExpiredLimitOrder struct {
	Base
	Symbol string
	Target model.EngineID
	Owner  model.AgentID
}

func (AckTriggerExpiredLimitOrder) Kind() string { return KindAckTriggerExpiredLimitOrder }

// RejectTriggerExpiredLimitOrder is published instead of the Ack when
// the order had already terminated (a fill or a direct cancel) before
// the trigger reached the engine.
type RejectTriggerExpiredLimitOrder struct {
	Base
	Symbol string
	Target model.EngineID
	Owner  model.AgentID
}

func (RejectTriggerExpiredLimitOrder) Kind() string { return KindRejectTriggerExpiredLimit }

// LimitOrderExpired is the adapter's global + per-owner broadcast that
// an order was terminated by expiration, the same two-topic publication
// used for full fills and cancel acks.
type LimitOrderExpired struct {
	Base
	Symbol string
	Target model.EngineID
	Owner  model.AgentID
}

func (LimitOrderExpired) Kind() string { return KindLimitOrderExpired }
