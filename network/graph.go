package network

import (
	"sort"

	"github.com/sarchlab/stackroute/sim/naming"
)

// Edge is a directed edge between two routers.
type Edge struct {
	From string
	To   string
}

// Name returns the name of the link built over the edge.
func (e Edge) Name() string {
	return naming.BuildLinkName(e.From, e.To)
}

// Reverse returns the edge in the opposite direction.
func (e Edge) Reverse() Edge {
	return Edge{From: e.To, To: e.From}
}

// Topology supplies the routers and edges of a network.
type Topology interface {
	Nodes() []string
	Edges() []Edge
}

// undirectedTopology is implemented by topologies whose edges go both ways.
type undirectedTopology interface {
	Undirected() bool
}

// Graph is a directed graph.
type Graph struct {
	adj map[string]map[string]bool
}

// NewGraph creates an empty directed graph.
func NewGraph() *Graph {
	return &Graph{adj: make(map[string]map[string]bool)}
}

// AddNode adds a vertex. Adding an existing vertex does nothing.
func (g *Graph) AddNode(id string) {
	naming.IDMustBeValid(id)

	if _, found := g.adj[id]; !found {
		g.adj[id] = make(map[string]bool)
	}
}

// AddEdge adds a directed edge, adding its endpoints if needed.
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		panic("self loop on " + from)
	}

	g.AddNode(from)
	g.AddNode(to)
	g.adj[from][to] = true
}

// HasNode reports whether the vertex exists.
func (g *Graph) HasNode(id string) bool {
	_, found := g.adj[id]
	return found
}

// HasEdge reports whether the directed edge exists.
func (g *Graph) HasEdge(from, to string) bool {
	return g.adj[from][to]
}

// Nodes returns the sorted vertices.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for id := range g.adj {
		nodes = append(nodes, id)
	}

	sort.Strings(nodes)

	return nodes
}

// Edges returns the directed edges sorted by source and then destination.
func (g *Graph) Edges() []Edge {
	var edges []Edge

	for _, from := range g.Nodes() {
		for _, to := range g.Neighbors(from) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}

	return edges
}

// Neighbors returns the sorted destinations of the edges leaving id.
func (g *Graph) Neighbors(id string) []string {
	out := make([]string, 0, len(g.adj[id]))
	for to := range g.adj[id] {
		out = append(out, to)
	}

	sort.Strings(out)

	return out
}

// Undirected is a graph where every edge can be crossed both ways.
type Undirected struct {
	g *Graph
}

// NewUndirected creates an empty undirected graph.
func NewUndirected() *Undirected {
	return &Undirected{g: NewGraph()}
}

// AddNode adds a vertex.
func (u *Undirected) AddNode(id string) {
	u.g.AddNode(id)
}

// AddEdge adds an edge between a and b.
func (u *Undirected) AddEdge(a, b string) {
	if b < a {
		a, b = b, a
	}

	u.g.AddEdge(a, b)
}

// Nodes returns the sorted vertices.
func (u *Undirected) Nodes() []string {
	return u.g.Nodes()
}

// Edges returns every edge once, with From sorted before To.
func (u *Undirected) Edges() []Edge {
	return u.g.Edges()
}

// Undirected returns true.
func (u *Undirected) Undirected() bool {
	return true
}

// Directed returns the directed graph with one edge per direction.
func (u *Undirected) Directed() *Graph {
	return Symmetrize(u)
}

// Symmetrize builds a directed graph that holds every edge of t in both
// directions.
func Symmetrize(t Topology) *Graph {
	g := NewGraph()

	for _, id := range t.Nodes() {
		g.AddNode(id)
	}

	for _, e := range t.Edges() {
		g.AddEdge(e.From, e.To)
		g.AddEdge(e.To, e.From)
	}

	return g
}

// toDirected turns any topology into a directed graph, symmetrizing it when
// it reports being undirected.
func toDirected(t Topology) *Graph {
	if u, ok := t.(undirectedTopology); ok && u.Undirected() {
		return Symmetrize(t)
	}

	g := NewGraph()

	for _, id := range t.Nodes() {
		g.AddNode(id)
	}

	for _, e := range t.Edges() {
		g.AddEdge(e.From, e.To)
	}

	return g
}
