package datarecording

import (
	"github.com/sarchlab/stackroute/network"
)

// Table names written by RecordNetwork.
const (
	RoutesTable    = "routes"
	NodeStatsTable = "node_stats"
	RunTable       = "run"
)

// RouteEntry is one row of the routing table of a router.
type RouteEntry struct {
	Node     string
	Dest     string
	Stack    string
	NextHop  string
	Function string
	Cost     int
}

// NodeStatsEntry holds the counters of a router.
type NodeStatsEntry struct {
	Node         string
	ConfSent     uint64
	ConfReceived uint64
	MsgRouted    uint64
	MsgDelivered uint64
	MsgDropped   uint64
}

// RunEntry summarizes a run.
type RunEntry struct {
	Name          string
	Nodes         int
	Links         int
	Converged     bool
	ConvergenceNS int64
	DurationNS    int64
	Sent          uint64
}

// RecordNetwork writes the routing tables, the router counters and a
// summary of the run. Nodes that do not expose a table or counters are
// skipped in the corresponding table.
func RecordNetwork(rec DataRecorder, net *network.Network) {
	rec.CreateTable(RoutesTable, RouteEntry{})
	rec.CreateTable(NodeStatsTable, NodeStatsEntry{})
	rec.CreateTable(RunTable, RunEntry{})

	for _, id := range net.Nodes() {
		n := net.Node(id)

		if owner, ok := n.(network.TableOwner); ok {
			for _, row := range owner.Table().Rows() {
				rec.InsertData(RoutesTable, RouteEntry{
					Node:     id,
					Dest:     row.Dest,
					Stack:    row.Stack.Compact(),
					NextHop:  row.NextHop,
					Function: row.Function.Notation(),
					Cost:     row.Cost,
				})
			}
		}

		if reporter, ok := n.(network.StatsReporter); ok {
			s := reporter.Stats()
			rec.InsertData(NodeStatsTable, NodeStatsEntry{
				Node:         id,
				ConfSent:     s.ConfSent,
				ConfReceived: s.ConfReceived,
				MsgRouted:    s.MsgRouted,
				MsgDelivered: s.MsgDelivered,
				MsgDropped:   s.MsgDropped,
			})
		}
	}

	rec.InsertData(RunTable, RunEntry{
		Name:          net.Name(),
		Nodes:         len(net.Nodes()),
		Links:         len(net.Links()),
		Converged:     net.Converged(),
		ConvergenceNS: int64(net.ConvergenceTime()),
		DurationNS:    int64(net.Duration()),
		Sent:          net.Sent(),
	})

	rec.Flush()
}
