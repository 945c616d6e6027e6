// Package routing provides the routing table of a router. The table is keyed
// by destination and stack shape, and keeps only the cheapest known route for
// each key.
package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/sarchlab/stackroute/protocol"
)

// ErrRouteNotFound is returned when no row exists for a key.
var ErrRouteNotFound = errors.New("routing: route not found")

// Row is one routing table entry. A message for Dest that currently carries
// Stack is adapted with Function and forwarded to NextHop.
type Row struct {
	Dest     string
	Stack    protocol.Stack
	NextHop  string
	Function protocol.Function
	Cost     int
}

type key struct {
	dest  string
	stack protocol.StackKey
}

type entry struct {
	nextHop  string
	function protocol.Function
	cost     int
}

// Table is a routing table. It is written by a single owner and can be read
// concurrently.
type Table struct {
	lock sync.RWMutex
	rows map[key]entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{rows: make(map[key]entry)}
}

// Contains reports whether a row exists for the key.
func (t *Table) Contains(dest string, stack protocol.Stack) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()

	_, found := t.rows[key{dest, stack.Key()}]

	return found
}

// Get returns the row for the key.
func (t *Table) Get(dest string, stack protocol.Stack) (Row, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	k := key{dest, stack.Key()}

	e, found := t.rows[k]
	if !found {
		return Row{}, fmt.Errorf("%w: dest %s stack %s",
			ErrRouteNotFound, dest, stack)
	}

	return e.row(k), nil
}

// AddRoute inserts the route if the key is new, or replaces the existing row
// if the new cost is strictly lower. It reports whether the table changed.
func (t *Table) AddRoute(
	dest string,
	stack protocol.Stack,
	nextHop string,
	f protocol.Function,
	cost int,
) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	k := key{dest, stack.Key()}

	old, found := t.rows[k]
	if found && old.cost <= cost {
		return false
	}

	t.rows[k] = entry{nextHop: nextHop, function: f, cost: cost}

	return true
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return len(t.rows)
}

// Rows returns all the rows, sorted by destination and then by stack.
func (t *Table) Rows() []Row {
	t.lock.RLock()

	rows := make([]Row, 0, len(t.rows))
	for k, e := range t.rows {
		rows = append(rows, e.row(k))
	}

	t.lock.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Dest != rows[j].Dest {
			return rows[i].Dest < rows[j].Dest
		}

		return rows[i].Stack.Key() < rows[j].Stack.Key()
	})

	return rows
}

// String dumps the table, one row per line.
func (t *Table) String() string {
	var b strings.Builder

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEST\tSTACK\tNEXT HOP\tFUNCTION\tCOST")

	for _, r := range t.Rows() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			r.Dest, r.Stack, r.NextHop, r.Function, r.Cost)
	}

	w.Flush()

	return b.String()
}

func (e entry) row(k key) Row {
	return Row{
		Dest:     k.dest,
		Stack:    k.stack.Stack(),
		NextHop:  e.nextHop,
		Function: e.function,
		Cost:     e.cost,
	}
}
