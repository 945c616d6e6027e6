// Package network wires routers together. It builds one bounded link per
// directed edge, runs every router in its own goroutine, detects when route
// discovery has converged, and then releases the data traffic.
package network

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/link"
	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/routing"
	"github.com/sarchlab/stackroute/sim/hooking"
	"github.com/sarchlab/stackroute/sim/naming"
)

var (
	// ErrUnknownLink is returned when sending over an edge that does not
	// exist.
	ErrUnknownLink = errors.New("network: unknown link")

	// ErrAlreadyStarted is returned when a network is started twice.
	ErrAlreadyStarted = errors.New("network: already started")
)

// Hook positions raised by a network.
var (
	HookPosStarted     = &hooking.HookPos{Name: "Network Started"}
	HookPosConverged   = &hooking.HookPos{Name: "Network Converged"}
	HookPosMsgReleased = &hooking.HookPos{Name: "Msg Released"}
	HookPosStopped     = &hooking.HookPos{Name: "Network Stopped"}
)

// Node is a router that a network can run.
type Node interface {
	ID() string
	SetTransport(t node.Transport)
	Init(ctx context.Context)
	Receive(ctx context.Context, sender string, item message.Item)
}

// TableOwner is a node that exposes its routing table.
type TableOwner interface {
	Table() *routing.Table
}

// StatsReporter is a node that exposes its counters.
type StatsReporter interface {
	Stats() node.Stats
}

type deferredMsg struct {
	first, nextHop string
	msg            *message.Message
}

// Network runs a set of routers over a directed graph.
type Network struct {
	naming.NamedBase
	hooking.HookableBase

	graph     *Graph
	neighbors map[string][]string
	nodes     map[string]Node
	actors    map[string]*actor
	links     map[Edge]*link.Link
	log       logrus.FieldLogger

	quiescence   time.Duration
	pollInterval time.Duration
	strict       bool

	started      atomic.Bool
	wg           sync.WaitGroup
	startNano    atomic.Int64
	stopped      atomic.Bool
	lastConf     atomic.Int64
	pendingInits atomic.Int64
	confInFlight atomic.Int64
	dataInFlight atomic.Int64

	converged       atomic.Bool
	convergenceTime atomic.Int64
	duration        atomic.Int64
	sent            atomic.Uint64

	deferredLock sync.Mutex
	deferred     []deferredMsg
}

// Graph returns the directed graph of the network.
func (n *Network) Graph() *Graph {
	return n.graph
}

// Node returns the node with the given id, or nil.
func (n *Network) Node(id string) Node {
	return n.nodes[id]
}

// Nodes returns the sorted node ids.
func (n *Network) Nodes() []string {
	return n.graph.Nodes()
}

// Link returns the link from one node to another.
func (n *Network) Link(from, to string) (*link.Link, error) {
	l, found := n.links[Edge{From: from, To: to}]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLink,
			naming.BuildLinkName(from, to))
	}

	return l, nil
}

// Links returns all the links, sorted by name.
func (n *Network) Links() []*link.Link {
	links := make([]*link.Link, 0, len(n.links))
	for _, l := range n.links {
		links = append(links, l)
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].Name() < links[j].Name()
	})

	return links
}

// InstallHook attaches a hook to the network, to every link and to every node
// that accepts hooks. It must be called before the network starts.
func (n *Network) InstallHook(h hooking.Hook) {
	n.AcceptHook(h)

	for _, l := range n.Links() {
		l.AcceptHook(h)
	}

	for _, id := range n.Nodes() {
		if hookable, ok := n.nodes[id].(hooking.Hookable); ok {
			hookable.AcceptHook(h)
		}
	}
}

// Converged reports whether route discovery has converged.
func (n *Network) Converged() bool {
	return n.converged.Load()
}

// ConvergenceTime returns the time from the start of the run until the last
// configuration message received before convergence was declared.
func (n *Network) ConvergenceTime() time.Duration {
	return time.Duration(n.convergenceTime.Load())
}

// Duration returns how long the last run lasted.
func (n *Network) Duration() time.Duration {
	return time.Duration(n.duration.Load())
}

// Running reports whether the network has started and not stopped yet.
func (n *Network) Running() bool {
	return n.started.Load() && !n.stopped.Load()
}

// Elapsed returns the time since the network started, or the total run time
// once it has stopped.
func (n *Network) Elapsed() time.Duration {
	if !n.started.Load() {
		return 0
	}

	if n.stopped.Load() {
		return n.Duration()
	}

	return time.Since(time.Unix(0, n.startNano.Load()))
}

// Sent returns the number of deferred data messages that were released.
func (n *Network) Sent() uint64 {
	return n.sent.Load()
}

// InFlight returns the number of items queued on links or being processed.
func (n *Network) InFlight() int64 {
	return n.confInFlight.Load() + n.dataInFlight.Load()
}

// SendAfterConvergence schedules msg to be sent from first to nextHop once
// route discovery has converged.
func (n *Network) SendAfterConvergence(
	first, nextHop string,
	msg *message.Message,
) {
	n.deferredLock.Lock()
	defer n.deferredLock.Unlock()

	n.deferred = append(n.deferred, deferredMsg{
		first:   first,
		nextHop: nextHop,
		msg:     msg,
	})
}

// Start runs the network. It returns when duration has elapsed (0 means no
// limit), or when discovery has converged, every deferred message has been
// released and nothing is left in flight. It returns the context error if ctx
// is canceled first.
func (n *Network) Start(ctx context.Context, duration time.Duration) error {
	if !n.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	start := time.Now()
	n.startNano.Store(start.UnixNano())

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)

	if duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, duration)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	n.lastConf.Store(start.UnixNano())
	n.pendingInits.Store(int64(len(n.actors)))

	n.log.WithField("nodes", len(n.nodes)).Info("network started")
	n.InvokeHook(hooking.HookCtx{Domain: n, Pos: HookPosStarted})

	for _, id := range n.Nodes() {
		n.wg.Add(1)
		go n.runActor(runCtx, n.actors[id])
	}

	n.observe(runCtx)

	cancel()
	n.wg.Wait()

	n.duration.Store(int64(time.Since(start)))
	n.stopped.Store(true)

	n.log.WithFields(logrus.Fields{
		"converged": n.Converged(),
		"duration":  n.Duration(),
		"sent":      n.Sent(),
		"in_flight": n.InFlight(),
	}).Info("network stopped")
	n.InvokeHook(hooking.HookCtx{Domain: n, Pos: HookPosStopped})

	return ctx.Err()
}

func (n *Network) observe(ctx context.Context) {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !n.Converged() {
			if !n.quiescent(time.Now()) {
				continue
			}

			n.markConverged()
		}

		if n.releaseDeferred(ctx) > 0 {
			continue
		}

		if n.InFlight() == 0 {
			return
		}
	}
}

func (n *Network) quiescent(now time.Time) bool {
	if n.pendingInits.Load() > 0 {
		return false
	}

	if now.UnixNano()-n.lastConf.Load() < int64(n.quiescence) {
		return false
	}

	if n.strict && n.confInFlight.Load() > 0 {
		return false
	}

	return true
}

func (n *Network) markConverged() {
	t := time.Duration(n.lastConf.Load() - n.startNano.Load())
	n.convergenceTime.Store(int64(t))
	n.converged.Store(true)

	n.log.WithField("convergence_time", t).Info("network converged")
	n.InvokeHook(hooking.HookCtx{Domain: n, Pos: HookPosConverged, Detail: t})
}

func (n *Network) releaseDeferred(ctx context.Context) int {
	n.deferredLock.Lock()
	pending := n.deferred
	n.deferred = nil
	n.deferredLock.Unlock()

	for _, d := range pending {
		// Hooks see the message before the receiver can touch it.
		n.InvokeHook(hooking.HookCtx{
			Domain: n,
			Pos:    HookPosMsgReleased,
			Item:   d.msg,
			Detail: Edge{From: d.first, To: d.nextHop},
		})

		err := n.send(ctx, d.first, d.nextHop, d.msg)
		if err != nil {
			n.log.WithFields(logrus.Fields{
				"from":   d.first,
				"to":     d.nextHop,
				"msg_id": d.msg.ID,
			}).WithError(err).Warn("deferred message not sent")

			continue
		}

		n.sent.Add(1)
	}

	return len(pending)
}

func (n *Network) inflight(item message.Item) *atomic.Int64 {
	if item.Meta().Kind == message.KindConfig {
		return &n.confInFlight
	}

	return &n.dataInFlight
}

func (n *Network) send(
	ctx context.Context,
	from, to string,
	item message.Item,
) error {
	return n.sendServing(ctx, nil, from, to, item)
}

// sendServing pushes item on the link from one router to another. If self is
// the actor of the sender, it keeps collecting its inbound items while the
// link is full.
func (n *Network) sendServing(
	ctx context.Context,
	self *actor,
	from, to string,
	item message.Item,
) error {
	l, found := n.links[Edge{From: from, To: to}]
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownLink,
			naming.BuildLinkName(from, to))
	}

	counter := n.inflight(item)
	counter.Add(1)

	var err error
	if self != nil {
		err = l.PushServing(ctx, item, self.wake.signal,
			func() { n.serve(self) })
	} else {
		err = l.Push(ctx, item)
	}

	if err != nil {
		counter.Add(-1)
		return err
	}

	n.actors[to].wake.push(from)

	return nil
}

// transport is the view of the network given to every node.
type transport struct {
	n *Network
}

// Send is called by a node from its own actor goroutine.
func (t transport) Send(
	ctx context.Context,
	from, to string,
	item message.Item,
) error {
	return t.n.sendServing(ctx, t.n.actors[from], from, to, item)
}

func (t transport) Neighbors(from string) []string {
	return t.n.neighbors[from]
}

func (t transport) Cost(
	from, to string,
	f protocol.Function,
) (int, bool) {
	l, found := t.n.links[Edge{From: from, To: to}]
	if !found {
		return 0, false
	}

	return l.Cost(f), true
}

func (t transport) TouchConfig() {
	t.n.lastConf.Store(time.Now().UnixNano())
}
