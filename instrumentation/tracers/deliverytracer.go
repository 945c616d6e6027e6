package tracers

import (
	"sync"
	"time"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/network"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/sim/hooking"
)

type inflightMsg struct {
	released time.Time
	hops     uint64
}

// DeliveryTracer measures data messages from the moment the network releases
// them until a router delivers or drops them. It must be installed on the
// network and on the routers.
type DeliveryTracer struct {
	lock      sync.Mutex
	inflight  map[string]*inflightMsg
	delivered uint64
	dropped   uint64
	totalTime time.Duration
	totalHops uint64
}

// NewDeliveryTracer creates a DeliveryTracer.
func NewDeliveryTracer() *DeliveryTracer {
	return &DeliveryTracer{inflight: make(map[string]*inflightMsg)}
}

// Func records the event.
func (t *DeliveryTracer) Func(ctx hooking.HookCtx) {
	msg, ok := ctx.Item.(*message.Message)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	switch ctx.Pos {
	case network.HookPosMsgReleased:
		t.inflight[msg.ID] = &inflightMsg{released: ctx.Time}
	case node.HookPosMsgRouted:
		if m, found := t.inflight[msg.ID]; found {
			m.hops++
		}
	case node.HookPosMsgDelivered:
		m, found := t.inflight[msg.ID]
		if !found {
			return
		}

		t.delivered++
		t.totalTime += ctx.Time.Sub(m.released)
		t.totalHops += m.hops
		delete(t.inflight, msg.ID)
	case node.HookPosMsgDropped:
		if _, found := t.inflight[msg.ID]; found {
			t.dropped++
			delete(t.inflight, msg.ID)
		}
	}
}

// Delivered returns the number of traced messages that arrived.
func (t *DeliveryTracer) Delivered() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.delivered
}

// Dropped returns the number of traced messages that were dropped.
func (t *DeliveryTracer) Dropped() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.dropped
}

// InFlight returns the number of released messages not yet accounted for.
func (t *DeliveryTracer) InFlight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflight)
}

// AverageLatency returns the mean time from release to delivery.
func (t *DeliveryTracer) AverageLatency() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.delivered == 0 {
		return 0
	}

	return t.totalTime / time.Duration(t.delivered)
}

// AverageHops returns the mean number of routers that forwarded a delivered
// message.
func (t *DeliveryTracer) AverageHops() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.delivered == 0 {
		return 0
	}

	return float64(t.totalHops) / float64(t.delivered)
}
