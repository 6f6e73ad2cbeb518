// Package eventbus implements the simulator's deterministic, topic-based
// scheduler: messages published between agents are delayed by a sampled
// per-pair latency and delivered in strict (time, sequence) order. Every
// other component only ever talks to the rest of the system through a
// Bus.
package eventbus

import (
	"container/heap"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/marketsim/xsim/internal/model"
)

// pairKey identifies one (publisher, subscriber) latency entry.
type pairKey struct {
	from, to model.AgentID
}

// hookEntry pairs a registered hook with the handle used to remove it.
type hookEntry struct {
	id   hookHandle
	hook PrePublishHook
}

// Bus is the simulator's single-threaded, cooperative scheduler. All of
// its state is owned exclusively by Bus; nothing outside this file
// mutates the heap or the latency table.
type Bus struct {
	now     model.Time
	nextSeq uint64

	agents      map[model.AgentID]Processor
	nextAgentID model.AgentID

	subscribers map[string]map[model.AgentID]struct{}
	latency     map[pairKey]LatencyParameters

	queue scheduledHeap

	hooks      []hookEntry
	nextHookID hookHandle

	rng     *sampler
	logger  *zap.Logger
	metrics *Metrics
	runID   string

	// defaultLatency overrides the package-level DefaultLatency for
	// this bus instance only, set by NewBusFromConfig so a run's
	// configured latency profile doesn't leak across concurrently
	// constructed buses (e.g. one per test).
	defaultLatency *LatencyParameters
}

// NewBus constructs a Bus seeded for reproducible latency draws. logger
// and metrics may both be nil.
func NewBus(seed int64, logger *zap.Logger, metrics *Metrics) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := ksuid.New().String()
	return &Bus{
		agents:      make(map[model.AgentID]Processor),
		subscribers: make(map[string]map[model.AgentID]struct{}),
		latency:     make(map[pairKey]LatencyParameters),
		queue:       make(scheduledHeap, 0),
		rng:         newSampler(seed),
		logger:      logger.With(zap.String("run_id", runID)),
		metrics:     metrics,
		runID:       runID,
	}
}

// Register assigns the next agent id, stores the processor's
// back-pointer, and returns the id. The caller must invoke
// proc.SetupSubscriptions(bus) itself afterward; the bus never calls it
// implicitly, because a processor's own subscriptions often reference
// its freshly-assigned id.
func (b *Bus) Register(proc Processor) model.AgentID {
	b.nextAgentID++
	id := b.nextAgentID
	b.agents[id] = proc
	return id
}

// Deregister removes all of an agent's subscriptions, outstanding
// scheduled messages, and latency-table entries. Deregistering an
// unknown id is a no-op.
func (b *Bus) Deregister(agent model.AgentID) {
	if _, ok := b.agents[agent]; !ok {
		return
	}
	delete(b.agents, agent)

	for topic, subs := range b.subscribers {
		delete(subs, agent)
		if len(subs) == 0 {
			delete(b.subscribers, topic)
		}
	}

	for k := range b.latency {
		if k.from == agent || k.to == agent {
			delete(b.latency, k)
		}
	}

	kept := b.queue[:0]
	for _, sm := range b.queue {
		if sm.Subscriber != agent {
			kept = append(kept, sm)
		}
	}
	b.queue = kept
	heap.Init(&b.queue)
}

// Subscribe adds agent to topic's subscriber set. Idempotent.
func (b *Bus) Subscribe(agent model.AgentID, topic string) {
	set, ok := b.subscribers[topic]
	if !ok {
		set = make(map[model.AgentID]struct{})
		b.subscribers[topic] = set
	}
	set[agent] = struct{}{}
}

// Unsubscribe removes agent from topic's subscriber set. Idempotent.
func (b *Bus) Unsubscribe(agent model.AgentID, topic string) {
	set, ok := b.subscribers[topic]
	if !ok {
		return
	}
	delete(set, agent)
	if len(set) == 0 {
		delete(b.subscribers, topic)
	}
}

// SetInterAgentLatency installs or updates the latency entry for one
// (from, to) pair.
func (b *Bus) SetInterAgentLatency(from, to model.AgentID, params LatencyParameters) {
	b.latency[pairKey{from, to}] = params
}

func (b *Bus) latencyFor(from, to model.AgentID) LatencyParameters {
	if p, ok := b.latency[pairKey{from, to}]; ok {
		return p
	}
	if b.defaultLatency != nil {
		return *b.defaultLatency
	}
	return DefaultLatency
}

// RegisterPrePublishHook adds a hook invoked on every published message,
// in registration order, before subscriber fan-out.
func (b *Bus) RegisterPrePublishHook(hook PrePublishHook) hookHandle {
	b.nextHookID++
	id := b.nextHookID
	b.hooks = append(b.hooks, hookEntry{id: id, hook: hook})
	return id
}

// DeregisterPrePublishHook removes a hook by the handle
// RegisterPrePublishHook returned, leaving the others' relative order
// untouched.
func (b *Bus) DeregisterPrePublishHook(h hookHandle) {
	for i, e := range b.hooks {
		if e.id == h {
			b.hooks = append(b.hooks[:i], b.hooks[i+1:]...)
			return
		}
	}
}

// Publish resolves topic to its subscriber set, fans out one
// independently-latency-sampled scheduled message per subscriber, and
// invokes every pre-publish hook first. Publishing on a topic with no
// subscribers is silently dropped: a subscriber may simply not have
// arrived yet, and adapters publish optimistically.
func (b *Bus) Publish(publisher model.AgentID, topic string, msg Message) {
	b.fanOut(publisher, topic, "", msg)
}

// PublishStream is Publish with an explicit stream id attached, for the
// common case of an adapter or watchdog that wants downstream consumers
// to be able to group an order's lifecycle.
func (b *Bus) PublishStream(publisher model.AgentID, topic, stream string, msg Message) {
	b.fanOut(publisher, topic, stream, msg)
}

func (b *Bus) fanOut(publisher model.AgentID, topic, stream string, msg Message) {
	for _, e := range b.hooks {
		e.hook.Observe(msg, publisher, topic, b.now)
	}
	if b.metrics != nil {
		b.metrics.Published.WithLabelValues(topic).Inc()
	}

	subs := b.subscribers[topic]
	if len(subs) == 0 {
		if b.metrics != nil {
			b.metrics.Dropped.WithLabelValues("no_subscribers").Inc()
		}
		return
	}

	// Subscribers are enqueued in ascending agent-id order, never map
	// order: both the sequence numbers and the latency draws consumed
	// here must come out identically for a fixed seed.
	ordered := make([]model.AgentID, 0, len(subs))
	for sub := range subs {
		ordered = append(ordered, sub)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	trace := uuid.NewString()
	for _, sub := range ordered {
		latency := b.rng.sample(b.latencyFor(publisher, sub))
		b.enqueue(msg, topic, stream, publisher, sub, b.now.Add(latency), trace)
	}
}

// ScheduleForSelfAt is used by agents (notably the watchdog) to arrange
// a future timer: publisher and subscriber are both agent, latency is
// zero, and delivery happens at exactly timeAbs. Pre-publish hooks still
// fire. Scheduling into the past is clamped to now with a logged
// warning, never rejected.
func (b *Bus) ScheduleForSelfAt(agent model.AgentID, timeAbs model.Time, msg Message, topic, stream string) {
	for _, e := range b.hooks {
		e.hook.Observe(msg, agent, topic, b.now)
	}
	if timeAbs < b.now {
		b.logger.Warn("schedule_for_self_at requested a past delivery time; clamping to now",
			zap.Int64("requested", int64(timeAbs)),
			zap.Int64("now", int64(b.now)),
			zap.Int64("agent", int64(agent)),
		)
		timeAbs = b.now
	}
	trace := uuid.NewString()
	b.enqueue(msg, topic, stream, agent, agent, timeAbs, trace)
}

func (b *Bus) enqueue(msg Message, topic, stream string, publisher, subscriber model.AgentID, at model.Time, trace string) {
	b.nextSeq++
	sm := &ScheduledMessage{
		Msg:        msg,
		Topic:      topic,
		Stream:     stream,
		Seq:        b.nextSeq,
		Publisher:  publisher,
		Subscriber: subscriber,
		At:         at,
		TraceID:    trace,
	}
	heap.Push(&b.queue, sm)
	if b.metrics != nil {
		b.metrics.QueueDepth.Set(float64(b.queue.Len()))
	}
}

// Peek returns the root of the heap without removing it.
func (b *Bus) Peek() (*ScheduledMessage, bool) {
	if b.queue.Len() == 0 {
		return nil, false
	}
	return b.queue[0], true
}

// Step pops the earliest (time, sequence) scheduled message, advances
// the virtual clock to its scheduled time (never backwards, since every
// entry satisfies At >= now at enqueue time), and dispatches it to the
// subscriber. A panic raised by the subscriber's OnMessage is recovered,
// logged, and does not abort the step or corrupt the queue.
func (b *Bus) Step() (*ScheduledMessage, bool) {
	if b.queue.Len() == 0 {
		return nil, false
	}
	start := time.Now()
	sm := heap.Pop(&b.queue).(*ScheduledMessage)
	if b.metrics != nil {
		b.metrics.QueueDepth.Set(float64(b.queue.Len()))
	}

	if sm.At > b.now {
		b.now = sm.At
	}

	proc, ok := b.agents[sm.Subscriber]
	if !ok {
		// The subscriber deregistered between enqueue and delivery; drop.
		if b.metrics != nil {
			b.metrics.Dropped.WithLabelValues("subscriber_gone").Inc()
		}
		b.metrics.observeStep(start)
		return sm, true
	}

	b.dispatch(proc, sm)

	if b.metrics != nil {
		b.metrics.Delivered.Inc()
	}
	b.metrics.observeStep(start)
	return sm, true
}

func (b *Bus) dispatch(proc Processor, sm *ScheduledMessage) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.HandlerPanics.Inc()
			}
			b.logger.Error("subscriber handler panicked",
				zap.Any("recovered", r),
				zap.String("topic", sm.Topic),
				zap.Int64("subscriber", int64(sm.Subscriber)),
				zap.String("trace_id", sm.TraceID),
			)
		}
	}()
	proc.OnMessage(sm.Msg, sm.Topic, sm.Publisher, b.now, sm.Stream, sm.Seq)
}

// Now returns the current virtual time.
func (b *Bus) Now() model.Time { return b.now }

// QueueSize returns the number of scheduled messages waiting.
func (b *Bus) QueueSize() int { return b.queue.Len() }

// RunID returns the per-bus correlation id stamped into every log line
// this bus emits.
func (b *Bus) RunID() string { return b.runID }

// String renders a short diagnostic summary, useful in panics/logs.
func (b *Bus) String() string {
	return fmt.Sprintf("Bus{run=%s now=%d queued=%d agents=%d}", b.runID, b.now, b.queue.Len(), len(b.agents))
}
