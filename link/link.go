// Package link provides the directed, bounded, FIFO channel that connects two
// routers, together with the cost of every adaptation function applied before
// a message crosses it.
package link

import (
	"context"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/hooking"
	"github.com/sarchlab/stackroute/sim/naming"
)

// HookPosLinkPush marks when an item is queued on a link.
var HookPosLinkPush = &hooking.HookPos{Name: "Link Push"}

// HookPosLinkPop marks when an item is taken from a link.
var HookPosLinkPop = &hooking.HookPos{Name: "Link Pop"}

// A Link is a bounded FIFO queue for one directed edge. It has one reader,
// the receiving router.
type Link struct {
	naming.NamedBase
	hooking.HookableBase

	from, to    string
	queue       chan message.Item
	defaultCost int
	costs       map[protocol.Function]int
}

// From returns the id of the sending router.
func (l *Link) From() string {
	return l.from
}

// To returns the id of the receiving router.
func (l *Link) To() string {
	return l.to
}

// Capacity returns the number of items the link can hold.
func (l *Link) Capacity() int {
	return cap(l.queue)
}

// Len returns the number of items currently queued.
func (l *Link) Len() int {
	return len(l.queue)
}

// Cost returns the cost of applying f before crossing the link.
func (l *Link) Cost(f protocol.Function) int {
	if c, found := l.costs[f]; found {
		return c
	}

	return l.defaultCost
}

// DefaultCost returns the cost of functions without a specific cost.
func (l *Link) DefaultCost() int {
	return l.defaultCost
}

// Push queues an item. It blocks while the link is full and returns the
// context error if ctx is done first.
func (l *Link) Push(ctx context.Context, item message.Item) error {
	return l.PushServing(ctx, item, nil, nil)
}

// PushServing queues an item like Push. While the link is full, serve is
// called every time wake fires, so that a blocked sender can keep taking
// items off its own inbound links.
//
// Push hooks run before the item is queued. Once queued, the item belongs to
// the receiver.
func (l *Link) PushServing(
	ctx context.Context,
	item message.Item,
	wake <-chan struct{},
	serve func(),
) error {
	l.invokePushHook(item)

	for {
		select {
		case l.queue <- item:
			return nil
		case <-wake:
			serve()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryPush queues an item if there is room and reports whether it did.
func (l *Link) TryPush(item message.Item) bool {
	if len(l.queue) >= cap(l.queue) {
		return false
	}

	l.invokePushHook(item)

	select {
	case l.queue <- item:
		return true
	default:
		return false
	}
}

func (l *Link) invokePushHook(item message.Item) {
	l.InvokeHook(hooking.HookCtx{
		Domain: l,
		Pos:    HookPosLinkPush,
		Item:   item,
	})
}

// Pop takes the oldest item without blocking. It returns false if the link is
// empty.
func (l *Link) Pop() (message.Item, bool) {
	select {
	case item := <-l.queue:
		l.InvokeHook(hooking.HookCtx{
			Domain: l,
			Pos:    HookPosLinkPop,
			Item:   item,
		})

		return item, true
	default:
		return nil, false
	}
}

// Drain pops every item currently queued and passes them to fn, in order.
// It returns the number of items drained.
func (l *Link) Drain(fn func(message.Item)) int {
	n := 0

	for {
		item, ok := l.Pop()
		if !ok {
			return n
		}

		fn(item)
		n++
	}
}
