package eventbus

import "github.com/marketsim/xsim/internal/model"

// Processor is implemented by every agent the bus can deliver to: the
// exchange adapter, the expiration watchdog, and (outside this module's
// scope) strategy and environment agents. Dispatch happens by type
// switch on Message inside OnMessage.
type Processor interface {
	// OnMessage delivers one scheduled message. deliveryTime is the
	// bus's current virtual time, which equals the message's scheduled
	// time since Step advances the clock to it before dispatching.
	OnMessage(msg Message, topic string, publisher model.AgentID, deliveryTime model.Time, stream string, seq uint64)

	// SetupSubscriptions is called once, after Register has assigned
	// this processor's agent id, so it can see its own id while
	// subscribing. The bus never calls it implicitly; the owner of the
	// processor calls it explicitly.
	SetupSubscriptions(bus *Bus)
}

// PrePublishHook observes every message published on the bus, once,
// before subscriber fan-out. A hook must not publish synchronously from
// inside Observe.
type PrePublishHook interface {
	Observe(msg Message, publisher model.AgentID, topic string, now model.Time)
}

// PrePublishHookFunc adapts a plain function to PrePublishHook.
type PrePublishHookFunc func(msg Message, publisher model.AgentID, topic string, now model.Time)

func (f PrePublishHookFunc) Observe(msg Message, publisher model.AgentID, topic string, now model.Time) {
	f(msg, publisher, topic, now)
}

// hookHandle is returned by RegisterPrePublishHook so a specific hook
// can be deregistered without disturbing the registration order of the
// others.
type hookHandle uint64
