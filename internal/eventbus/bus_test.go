package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsim/xsim/internal/eventbus"
	"github.com/marketsim/xsim/internal/model"
)

// recordingProcessor stores every message it is handed, in delivery
// order, so tests can assert on ordering without a real agent.
type recordingProcessor struct {
	received []recorded
}

type recorded struct {
	msg    eventbus.Message
	topic  string
	from   model.AgentID
	at     model.Time
	stream string
	seq    uint64
}

func (p *recordingProcessor) OnMessage(msg eventbus.Message, topic string, publisher model.AgentID, deliveryTime model.Time, stream string, seq uint64) {
	p.received = append(p.received, recorded{msg, topic, publisher, deliveryTime, stream, seq})
}

func (p *recordingProcessor) SetupSubscriptions(*eventbus.Bus) {}

func newBang() eventbus.Message {
	return &eventbus.Bang{}
}

func TestBus_TimeNeverDecreases(t *testing.T) {
	bus := eventbus.NewBus(1, nil, nil)
	a := bus.Register(&recordingProcessor{})
	b := &recordingProcessor{}
	bID := bus.Register(b)

	bus.Subscribe(bID, "topic.a")
	for i := 0; i < 50; i++ {
		bus.Publish(a, "topic.a", newBang())
	}

	last := bus.Now()
	for {
		_, ok := bus.Step()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, int64(bus.Now()), int64(last))
		last = bus.Now()
	}
}

func TestBus_SequenceNumbersAreStrictlyMonotonic(t *testing.T) {
	bus := eventbus.NewBus(2, nil, nil)
	a := bus.Register(&recordingProcessor{})
	b := &recordingProcessor{}
	bID := bus.Register(b)
	bus.Subscribe(bID, "t")

	for i := 0; i < 10; i++ {
		bus.Publish(a, "t", newBang())
	}

	var lastSeq uint64
	first := true
	for {
		sm, ok := bus.Step()
		if !ok {
			break
		}
		if !first {
			require.Greater(t, sm.Seq, lastSeq)
		}
		first = false
		lastSeq = sm.Seq
	}
}

func TestBus_QueueEntriesNeverScheduledBeforeNow(t *testing.T) {
	bus := eventbus.NewBus(3, nil, nil)
	a := bus.Register(&recordingProcessor{})
	b := &recordingProcessor{}
	bID := bus.Register(b)
	bus.Subscribe(bID, "t")
	bus.SetInterAgentLatency(a, bID, eventbus.FixedLatency(100, 50))

	bus.Publish(a, "t", newBang())

	sm, ok := bus.Peek()
	require.True(t, ok)
	assert.GreaterOrEqual(t, int64(sm.At), int64(bus.Now()))
}

func TestBus_PublishWithNoSubscribersIsDroppedNotError(t *testing.T) {
	bus := eventbus.NewBus(4, nil, nil)
	a := bus.Register(&recordingProcessor{})

	assert.NotPanics(t, func() {
		bus.Publish(a, "nobody.listens", newBang())
	})
	assert.Equal(t, 0, bus.QueueSize())
}

func TestBus_DeregisterRemovesPendingDeliveries(t *testing.T) {
	bus := eventbus.NewBus(5, nil, nil)
	a := bus.Register(&recordingProcessor{})
	b := &recordingProcessor{}
	bID := bus.Register(b)
	bus.Subscribe(bID, "t")

	bus.Publish(a, "t", newBang())
	require.Equal(t, 1, bus.QueueSize())

	bus.Deregister(bID)
	assert.Equal(t, 0, bus.QueueSize())
}

func TestBus_ScheduleForSelfAtClampsPastTimes(t *testing.T) {
	bus := eventbus.NewBus(6, nil, nil)
	a := &recordingProcessor{}
	aID := bus.Register(a)

	bus.ScheduleForSelfAt(aID, model.Time(-1000), newBang(), "self.timer", "")
	sm, ok := bus.Peek()
	require.True(t, ok)
	assert.Equal(t, bus.Now(), sm.At)
}

func TestBus_HandlerPanicDoesNotAbortStep(t *testing.T) {
	bus := eventbus.NewBus(7, nil, nil)
	a := bus.Register(&recordingProcessor{})
	bID := bus.Register(panicProcessor{})
	bus.Subscribe(bID, "t")

	bus.Publish(a, "t", newBang())
	assert.NotPanics(t, func() {
		bus.Step()
	})
}

type panicProcessor struct{}

func (panicProcessor) OnMessage(eventbus.Message, string, model.AgentID, model.Time, string, uint64) {
	panic("boom")
}
func (panicProcessor) SetupSubscriptions(*eventbus.Bus) {}

func TestBus_PrePublishHookObservesEveryPublish(t *testing.T) {
	bus := eventbus.NewBus(8, nil, nil)
	a := bus.Register(&recordingProcessor{})

	seen := 0
	h := bus.RegisterPrePublishHook(eventbus.PrePublishHookFunc(func(eventbus.Message, model.AgentID, string, model.Time) {
		seen++
	}))
	bus.Publish(a, "whatever", newBang())
	assert.Equal(t, 1, seen)

	bus.DeregisterPrePublishHook(h)
	bus.Publish(a, "whatever", newBang())
	assert.Equal(t, 1, seen)
}
