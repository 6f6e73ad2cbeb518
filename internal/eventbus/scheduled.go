package eventbus

import "github.com/marketsim/xsim/internal/model"

// ScheduledMessage pairs a Message with its delivery target: who it is
// from and for, when it arrives, and the sequence number that breaks
// ties between equal arrival times.
type ScheduledMessage struct {
	Msg        Message
	Topic      string
	Stream     string
	Seq        uint64
	Publisher  model.AgentID
	Subscriber model.AgentID
	At         model.Time
	TraceID    string
}

// scheduledHeap is a min-heap on (At, Seq). Sequence numbers are
// assigned at publish time and strictly increase, so two messages
// scheduled for the same instant are delivered in publish order.
type scheduledHeap []*ScheduledMessage

func (h scheduledHeap) Len() int { return len(h) }

func (h scheduledHeap) Less(i, j int) bool {
	if h[i].At != h[j].At {
		return h[i].At < h[j].At
	}
	return h[i].Seq < h[j].Seq
}

func (h scheduledHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scheduledHeap) Push(x interface{}) {
	*h = append(*h, x.(*ScheduledMessage))
}

func (h *scheduledHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
