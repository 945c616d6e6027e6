package scenario

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/link"
	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/network"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/protocol"
)

// Options tune how a scenario becomes a network.
type Options struct {
	// Log receives the logs of the network and its routers. Defaults to the
	// logrus standard logger.
	Log logrus.FieldLogger

	// Defaults fill the fields the scenario leaves at zero.
	Defaults Defaults

	// NonStrict lets the network declare convergence on the idle window
	// alone, even with configuration messages still queued.
	NonStrict bool

	// OnDelivered is called by a router when a message reaches it. Routers
	// log the delivery when it is nil.
	OnDelivered func(*message.Message)
}

// Resolved returns the parameters the network is built with: the scenario's
// own values, then the fallbacks, then the package defaults.
func (s *Scenario) Resolved(fallback Defaults) Defaults {
	d := s.Defaults

	if d.QueueSize == 0 {
		d.QueueSize = fallback.QueueSize
	}

	if d.DefaultCost == 0 {
		d.DefaultCost = fallback.DefaultCost
	}

	if d.MaxHeight == 0 {
		d.MaxHeight = fallback.MaxHeight
	}

	if d.Quiescence == 0 {
		d.Quiescence = fallback.Quiescence
	}

	if d.QueueSize == 0 {
		d.QueueSize = link.DefaultCapacity
	}

	if d.DefaultCost == 0 {
		d.DefaultCost = link.DefaultCost
	}

	if d.MaxHeight == 0 {
		d.MaxHeight = message.DefaultMaxHeight
	}

	if d.Quiescence == 0 {
		d.Quiescence = network.DefaultQuiescence
	}

	return d
}

// Build validates the scenario and creates its network. Traffic is scheduled
// to be sent once discovery converges.
func (s *Scenario) Build(opts Options) (*network.Network, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	d := s.Resolved(opts.Defaults)

	nodes := make(map[string]network.Node, len(s.Nodes))
	for _, id := range s.NodeIDs() {
		nodes[id] = s.buildRouter(id, d, log, opts.OnDelivered)
	}

	net := network.MakeBuilder().
		WithTopology(s.topology()).
		WithNodes(nodes).
		WithQueueSize(d.QueueSize).
		WithDefaultCost(d.DefaultCost).
		WithMaxStackHeight(d.MaxHeight).
		WithQuiescence(d.Quiescence).
		WithStrictConvergence(!opts.NonStrict).
		WithLinkCosts(s.linkCosts()).
		WithLogger(log).
		Build(s.Name)

	s.scheduleTraffic(net, d)

	return net, nil
}

func (s *Scenario) buildRouter(
	id string,
	d Defaults,
	log logrus.FieldLogger,
	onDelivered func(*message.Message),
) *node.Router {
	fs := make([]protocol.Function, 0, len(s.Nodes[id]))
	for _, notation := range s.Nodes[id] {
		fs = append(fs, protocol.MustParseFunction(notation))
	}

	b := node.MakeBuilder().
		WithFunctions(fs...).
		WithMaxStackHeight(d.MaxHeight).
		WithLogger(log)

	if onDelivered != nil {
		b = b.WithDestinationReached(onDelivered)
	}

	return b.Build(id)
}

func (s *Scenario) topology() network.Topology {
	if s.Undirected {
		u := network.NewUndirected()
		for _, id := range s.NodeIDs() {
			u.AddNode(id)
		}

		for _, e := range s.Edges {
			u.AddEdge(e[0], e[1])
		}

		return u
	}

	g := network.NewGraph()
	for _, id := range s.NodeIDs() {
		g.AddNode(id)
	}

	for _, e := range s.Edges {
		g.AddEdge(e[0], e[1])
	}

	return g
}

func (s *Scenario) linkCosts() map[network.Edge]map[protocol.Function]int {
	costs := make(map[network.Edge]map[protocol.Function]int)

	for _, c := range s.LinkCosts {
		e := network.Edge{From: c.From, To: c.To}
		if costs[e] == nil {
			costs[e] = make(map[protocol.Function]int)
		}

		costs[e][protocol.MustParseFunction(c.Function)] = c.Cost
	}

	return costs
}

func (s *Scenario) scheduleTraffic(net *network.Network, d Defaults) {
	for _, t := range s.Traffic {
		b := message.MessageBuilder{}.
			WithSrc(t.Source()).
			WithDst(t.To).
			WithStack(protocol.ParseStack(t.Stack)).
			WithPayload(t.Payload).
			WithMaxHeight(d.MaxHeight)

		for i := 0; i < t.Messages(); i++ {
			net.SendAfterConvergence(t.From, t.Via, b.Build())
		}
	}
}

// TrafficSize returns the number of data messages the scenario sends.
func (s *Scenario) TrafficSize() int {
	total := 0
	for _, t := range s.Traffic {
		total += t.Messages()
	}

	return total
}

// String summarizes the scenario.
func (s *Scenario) String() string {
	return fmt.Sprintf("%s: %d nodes, %d edges, %d messages",
		s.Name, len(s.Nodes), len(s.Edges), s.TrafficSize())
}
