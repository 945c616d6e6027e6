package network

import (
	"context"
	"sync"

	"github.com/sarchlab/stackroute/message"
)

// wakeQueue is an unbounded FIFO of sender ids. Senders never block on it;
// the owner blocks until a sender id is available.
type wakeQueue struct {
	lock    sync.Mutex
	senders []string
	signal  chan struct{}
}

func newWakeQueue() *wakeQueue {
	return &wakeQueue{signal: make(chan struct{}, 1)}
}

func (q *wakeQueue) push(sender string) {
	q.lock.Lock()
	q.senders = append(q.senders, sender)
	q.lock.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *wakeQueue) pop(ctx context.Context) (string, bool) {
	for {
		q.lock.Lock()
		if len(q.senders) > 0 {
			s := q.senders[0]
			q.senders = q.senders[1:]
			q.lock.Unlock()

			return s, true
		}
		q.lock.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return "", false
		}
	}
}

// takeAll removes and returns every queued sender without blocking.
func (q *wakeQueue) takeAll() []string {
	q.lock.Lock()
	defer q.lock.Unlock()

	senders := q.senders
	q.senders = nil

	return senders
}

func (q *wakeQueue) len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.senders)
}

type inbound struct {
	sender string
	item   message.Item
}

// actor runs one node. It is the only goroutine that calls into the node.
//
// Items are moved from the inbound links into the backlog before the node
// sees them. An actor blocked on a full outbound link keeps filling its
// backlog, so two routers pushing to each other can not stall forever.
type actor struct {
	id      string
	node    Node
	wake    *wakeQueue
	backlog []inbound
}

func newActor(nd Node) *actor {
	return &actor{id: nd.ID(), node: nd, wake: newWakeQueue()}
}

func (n *Network) runActor(ctx context.Context, a *actor) {
	defer n.wg.Done()

	a.node.Init(ctx)
	n.pendingInits.Add(-1)

	for ctx.Err() == nil {
		if len(a.backlog) > 0 {
			in := a.backlog[0]
			a.backlog[0] = inbound{}
			a.backlog = a.backlog[1:]

			a.node.Receive(ctx, in.sender, in.item)
			n.inflight(in.item).Add(-1)

			continue
		}

		sender, ok := a.wake.pop(ctx)
		if !ok {
			return
		}

		n.collect(a, sender)
	}
}

// collect moves everything queued on the link from sender to the backlog.
func (n *Network) collect(a *actor, sender string) {
	l := n.links[Edge{From: sender, To: a.id}]

	l.Drain(func(item message.Item) {
		a.backlog = append(a.backlog, inbound{sender: sender, item: item})
	})
}

// serve collects from every sender that woke the actor. It runs on the
// actor's goroutine while the actor waits for room on an outbound link.
func (n *Network) serve(a *actor) {
	for _, sender := range a.wake.takeAll() {
		n.collect(a, sender)
	}
}
