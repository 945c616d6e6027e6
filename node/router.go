// Package node implements the behavior of a router: it advertises the stacks
// it accepts, learns routes from configuration messages, and adapts and
// forwards data messages. A router owns no goroutine; the network decides
// when it runs.
package node

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/routing"
	"github.com/sarchlab/stackroute/sim/hooking"
)

// Transport is what a router uses to talk to the rest of the network.
type Transport interface {
	// Send delivers an item from one router to a neighbor. It may block
	// while the link is full.
	Send(ctx context.Context, from, to string, item message.Item) error

	// Neighbors lists the routers that from can send to.
	Neighbors(from string) []string

	// Cost returns the cost of applying f before crossing the link from one
	// router to another. It reports false if there is no such link.
	Cost(from, to string, f protocol.Function) (int, bool)

	// TouchConfig records that a configuration message was just received.
	TouchConfig()
}

// Hook positions raised by a router. HookPosMsgRouted fires after the message
// is adapted and before it is handed to the next hop, so hooks can still read
// it safely.
var (
	HookPosConfSent     = &hooking.HookPos{Name: "Conf Sent"}
	HookPosConfRecv     = &hooking.HookPos{Name: "Conf Recv"}
	HookPosRouteAdded   = &hooking.HookPos{Name: "Route Added"}
	HookPosMsgRouted    = &hooking.HookPos{Name: "Msg Routed"}
	HookPosMsgDelivered = &hooking.HookPos{Name: "Msg Delivered"}
	HookPosMsgDropped   = &hooking.HookPos{Name: "Msg Dropped"}
)

// DropReason explains why a data message was dropped. It is the Detail of
// HookPosMsgDropped.
type DropReason string

// Drop reasons.
const (
	DropNoRoute           DropReason = "no route"
	DropMaxHeight         DropReason = "max height exceeded"
	DropNotApplicable     DropReason = "function not applicable"
	DropInvalidOnArrival  DropReason = "invalid message"
	DropTransportCanceled DropReason = "transport canceled"
)

// Stats holds the counters of a router.
type Stats struct {
	ConfSent     uint64
	ConfReceived uint64
	MsgRouted    uint64
	MsgDelivered uint64
	MsgDropped   uint64
}

// Router is a node of the simulated network.
type Router struct {
	hooking.HookableBase

	id             string
	functions      []protocol.Function
	inSet          []protocol.Stack
	table          *routing.Table
	transport      Transport
	log            logrus.FieldLogger
	maxStackHeight int
	onDelivered    func(*message.Message)

	confSent     atomic.Uint64
	confReceived atomic.Uint64
	msgRouted    atomic.Uint64
	msgDelivered atomic.Uint64
	msgDropped   atomic.Uint64
}

// ID returns the id of the router.
func (r *Router) ID() string {
	return r.id
}

// Name returns the id of the router.
func (r *Router) Name() string {
	return r.id
}

// Functions returns the dialect of the router.
func (r *Router) Functions() []protocol.Function {
	return append([]protocol.Function(nil), r.functions...)
}

// InSet returns the stack shapes the router accepts directly.
func (r *Router) InSet() []protocol.Stack {
	in := make([]protocol.Stack, len(r.inSet))
	for i, s := range r.inSet {
		in[i] = s.Clone()
	}

	return in
}

// Table returns the routing table. It is safe to read while the router runs.
func (r *Router) Table() *routing.Table {
	return r.table
}

// SetTransport binds the router to a network. It can only be called once.
func (r *Router) SetTransport(t Transport) {
	if r.transport != nil {
		panic("router " + r.id + " is already connected")
	}

	r.transport = t
}

// Stats returns a snapshot of the counters.
func (r *Router) Stats() Stats {
	return Stats{
		ConfSent:     r.confSent.Load(),
		ConfReceived: r.confReceived.Load(),
		MsgRouted:    r.msgRouted.Load(),
		MsgDelivered: r.msgDelivered.Load(),
		MsgDropped:   r.msgDropped.Load(),
	}
}

// Init advertises every accepted stack shape to every neighbor.
func (r *Router) Init(ctx context.Context) {
	r.transportMustBeSet()

	for _, in := range r.inSet {
		for _, n := range r.transport.Neighbors(r.id) {
			r.sendConf(ctx, n, message.NewConfigurationMessage(r.id, in, 0))
		}
	}
}

// Receive handles an item that arrived from sender.
func (r *Router) Receive(ctx context.Context, sender string, item message.Item) {
	switch item := item.(type) {
	case *message.ConfigurationMessage:
		r.receiveConf(ctx, sender, item)
	case *message.Message:
		r.receiveMsg(ctx, item)
	default:
		r.log.WithField("sender", sender).
			Warnf("ignoring item of unknown type %T", item)
	}
}

func (r *Router) receiveConf(
	ctx context.Context,
	sender string,
	conf *message.ConfigurationMessage,
) {
	r.transportMustBeSet()
	r.confReceived.Add(1)
	r.transport.TouchConfig()

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosConfRecv,
		Item:   conf,
		Detail: sender,
	})

	for _, f := range r.functions {
		in, err := f.Reverse().Apply(conf.StackCopy())
		if err != nil {
			continue
		}

		if in.Len() > r.maxStackHeight {
			continue
		}

		linkCost, found := r.transport.Cost(r.id, sender, f)
		if !found {
			continue
		}

		cost := linkCost + conf.Cost
		if !r.table.AddRoute(conf.Dest, in, sender, f, cost) {
			continue
		}

		row := routing.Row{
			Dest:     conf.Dest,
			Stack:    in,
			NextHop:  sender,
			Function: f,
			Cost:     cost,
		}

		r.log.WithFields(logrus.Fields{
			"dest":     row.Dest,
			"stack":    row.Stack.String(),
			"next_hop": row.NextHop,
			"cost":     row.Cost,
		}).Debug("route added")

		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosRouteAdded,
			Item:   row,
		})

		for _, n := range r.transport.Neighbors(r.id) {
			r.sendConf(ctx, n,
				message.NewConfigurationMessage(conf.Dest, in, cost))
		}
	}
}

func (r *Router) sendConf(
	ctx context.Context,
	to string,
	conf *message.ConfigurationMessage,
) {
	err := r.transport.Send(ctx, r.id, to, conf)
	if err != nil {
		r.log.WithField("to", to).WithError(err).
			Debug("configuration message not sent")

		return
	}

	r.confSent.Add(1)

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosConfSent,
		Item:   conf,
		Detail: to,
	})
}

func (r *Router) receiveMsg(ctx context.Context, msg *message.Message) {
	if msg.Dst == r.id {
		r.deliver(msg)
		return
	}

	r.Route(ctx, msg)
}

func (r *Router) deliver(msg *message.Message) {
	r.msgDelivered.Add(1)

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosMsgDelivered,
		Item:   msg,
	})

	r.onDelivered(msg)
}

// Route looks up the route of a data message, adapts its stack and forwards
// it to the next hop. Messages without a route, or that grow too high, are
// dropped.
func (r *Router) Route(ctx context.Context, msg *message.Message) {
	r.transportMustBeSet()

	if !msg.Valid() {
		r.drop(msg, DropInvalidOnArrival)
		return
	}

	row, err := r.table.Get(msg.Dst, msg.Stack)
	if err != nil {
		r.drop(msg, DropNoRoute)
		return
	}

	err = msg.Adapt(row.Function)
	if err != nil {
		r.drop(msg, DropNotApplicable)
		return
	}

	if !msg.Valid() {
		r.drop(msg, DropMaxHeight)
		return
	}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosMsgRouted,
		Item:   msg,
		Detail: row,
	})

	err = r.transport.Send(ctx, r.id, row.NextHop, msg)
	if err != nil {
		r.drop(msg, DropTransportCanceled)
		return
	}

	r.msgRouted.Add(1)
}

func (r *Router) drop(msg *message.Message, reason DropReason) {
	r.msgDropped.Add(1)

	r.log.WithFields(logrus.Fields{
		"msg_id": msg.ID,
		"dest":   msg.Dst,
		"stack":  msg.Stack.String(),
		"reason": string(reason),
	}).Debug("message dropped")

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosMsgDropped,
		Item:   msg,
		Detail: reason,
	})
}

func (r *Router) transportMustBeSet() {
	if r.transport == nil {
		panic("router " + r.id + " is not connected to a network")
	}
}
