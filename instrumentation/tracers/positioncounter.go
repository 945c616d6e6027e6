package tracers

import (
	"sort"
	"sync"

	"github.com/sarchlab/stackroute/sim/hooking"
)

// PositionCounter counts how many times each hook position fired, per
// domain.
type PositionCounter struct {
	lock   sync.Mutex
	counts map[string]map[string]uint64
}

// NewPositionCounter creates a PositionCounter.
func NewPositionCounter() *PositionCounter {
	return &PositionCounter{counts: make(map[string]map[string]uint64)}
}

// Func counts the event.
func (c *PositionCounter) Func(ctx hooking.HookCtx) {
	domain := domainName(ctx)
	pos := posName(ctx)

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.counts[pos] == nil {
		c.counts[pos] = make(map[string]uint64)
	}

	c.counts[pos][domain]++
}

// Count returns how many times pos fired, across all domains.
func (c *PositionCounter) Count(pos *hooking.HookPos) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	var total uint64
	for _, n := range c.counts[pos.Name] {
		total += n
	}

	return total
}

// CountIn returns how many times pos fired in one domain.
func (c *PositionCounter) CountIn(pos *hooking.HookPos, domain string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[pos.Name][domain]
}

// Positions returns the names of the positions that fired, sorted.
func (c *PositionCounter) Positions() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	names := make([]string, 0, len(c.counts))
	for name := range c.counts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
