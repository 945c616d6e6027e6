package network

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/link"
	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/naming"
)

// Defaults used by the builder.
const (
	DefaultQuiescence   = 20 * time.Millisecond
	DefaultPollInterval = 2 * time.Millisecond
)

// Builder can build networks.
type Builder struct {
	topology       Topology
	nodes          map[string]Node
	factory        func(id string) Node
	queueSize      int
	defaultCost    int
	linkCosts      map[Edge]map[protocol.Function]int
	quiescence     time.Duration
	pollInterval   time.Duration
	maxStackHeight int
	strict         bool
	log            logrus.FieldLogger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		queueSize:      link.DefaultCapacity,
		defaultCost:    link.DefaultCost,
		quiescence:     DefaultQuiescence,
		pollInterval:   DefaultPollInterval,
		maxStackHeight: message.DefaultMaxHeight,
		strict:         true,
		log:            logrus.StandardLogger(),
	}
}

// WithTopology sets the graph. Undirected topologies are symmetrized.
func (b Builder) WithTopology(t Topology) Builder {
	b.topology = t
	return b
}

// WithNodes supplies some or all of the nodes, keyed by id.
func (b Builder) WithNodes(nodes map[string]Node) Builder {
	b.nodes = nodes
	return b
}

// WithNodeFactory sets the function that creates the nodes that are not
// supplied with WithNodes.
func (b Builder) WithNodeFactory(f func(id string) Node) Builder {
	b.factory = f
	return b
}

// WithQueueSize sets the capacity of every link.
func (b Builder) WithQueueSize(n int) Builder {
	b.queueSize = n
	return b
}

// WithDefaultCost sets the cost of crossing a link with any function.
func (b Builder) WithDefaultCost(c int) Builder {
	b.defaultCost = c
	return b
}

// WithLinkCosts overrides the cost of some functions on some edges.
func (b Builder) WithLinkCosts(costs map[Edge]map[protocol.Function]int) Builder {
	b.linkCosts = costs
	return b
}

// WithQuiescence sets how long no configuration message must be received
// before discovery is considered converged.
func (b Builder) WithQuiescence(d time.Duration) Builder {
	b.quiescence = d
	return b
}

// WithPollInterval sets how often the network checks for convergence.
func (b Builder) WithPollInterval(d time.Duration) Builder {
	b.pollInterval = d
	return b
}

// WithMaxStackHeight sets the highest stack the default nodes learn routes
// for.
func (b Builder) WithMaxStackHeight(h int) Builder {
	b.maxStackHeight = h
	return b
}

// WithStrictConvergence sets whether convergence also requires that no
// configuration message is in flight. With strict set to false, only the
// quiescence window is checked.
func (b Builder) WithStrictConvergence(strict bool) Builder {
	b.strict = strict
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logrus.FieldLogger) Builder {
	b.log = l
	return b
}

// Build creates the network.
func (b Builder) Build(name string) *Network {
	b.topologyMustBeGiven()
	b.parametersMustBeValid()

	n := &Network{
		NamedBase:    naming.MakeNamedBase(name),
		graph:        toDirected(b.topology),
		neighbors:    make(map[string][]string),
		nodes:        make(map[string]Node),
		actors:       make(map[string]*actor),
		links:        make(map[Edge]*link.Link),
		log:          b.log.WithField("network", name),
		quiescence:   b.quiescence,
		pollInterval: b.pollInterval,
		strict:       b.strict,
	}

	b.buildLinks(n)
	b.bindNodes(n)

	return n
}

func (b Builder) buildLinks(n *Network) {
	for e := range b.linkCosts {
		if !n.graph.HasEdge(e.From, e.To) {
			panic(fmt.Sprintf("link cost given for unknown link %s", e.Name()))
		}
	}

	lb := link.MakeBuilder().
		WithCapacity(b.queueSize).
		WithDefaultCost(b.defaultCost)

	for _, e := range n.graph.Edges() {
		n.links[e] = lb.WithFunctionCosts(b.linkCosts[e]).Build(e.From, e.To)
	}
}

func (b Builder) bindNodes(n *Network) {
	for id := range b.nodes {
		if !n.graph.HasNode(id) {
			panic(fmt.Sprintf("node %s is not in the topology", id))
		}
	}

	t := transport{n: n}

	for _, id := range n.graph.Nodes() {
		nd := b.nodeFor(id)
		if nd.ID() != id {
			panic(fmt.Sprintf("node %s is registered as %s", nd.ID(), id))
		}

		nd.SetTransport(t)

		n.nodes[id] = nd
		n.actors[id] = newActor(nd)
		n.neighbors[id] = n.graph.Neighbors(id)
	}
}

func (b Builder) nodeFor(id string) Node {
	if nd, found := b.nodes[id]; found {
		return nd
	}

	if b.factory != nil {
		return b.factory(id)
	}

	b.log.WithField("node", id).
		Warn("node not supplied, using a router with no adaptation function")

	return node.MakeBuilder().
		WithLogger(b.log).
		WithMaxStackHeight(b.maxStackHeight).
		Build(id)
}

func (b Builder) topologyMustBeGiven() {
	if b.topology == nil {
		panic("topology is not given")
	}
}

func (b Builder) parametersMustBeValid() {
	if b.log == nil {
		panic("logger is not given")
	}

	if b.queueSize <= 0 {
		panic("queue size must be positive")
	}

	if b.quiescence <= 0 || b.pollInterval <= 0 {
		panic("quiescence window and poll interval must be positive")
	}
}
