package link

import (
	"fmt"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/naming"
)

// Defaults used by the builder.
const (
	DefaultCapacity = 100
	DefaultCost     = 1
)

// Builder can build links.
type Builder struct {
	capacity    int
	defaultCost int
	costs       map[protocol.Function]int
}

// MakeBuilder creates a builder with the default capacity and cost.
func MakeBuilder() Builder {
	return Builder{
		capacity:    DefaultCapacity,
		defaultCost: DefaultCost,
	}
}

// WithCapacity sets the number of items the link can hold.
func (b Builder) WithCapacity(n int) Builder {
	b.capacity = n
	return b
}

// WithDefaultCost sets the cost of functions without a specific cost.
func (b Builder) WithDefaultCost(c int) Builder {
	b.defaultCost = c
	return b
}

// WithFunctionCost sets the cost of one function.
func (b Builder) WithFunctionCost(f protocol.Function, c int) Builder {
	costs := make(map[protocol.Function]int, len(b.costs)+1)
	for k, v := range b.costs {
		costs[k] = v
	}

	costs[f] = c
	b.costs = costs

	return b
}

// WithFunctionCosts sets the cost of several functions.
func (b Builder) WithFunctionCosts(costs map[protocol.Function]int) Builder {
	for f, c := range costs {
		b = b.WithFunctionCost(f, c)
	}

	return b
}

// Build creates the link from one router to another.
func (b Builder) Build(from, to string) *Link {
	naming.IDMustBeValid(from)
	naming.IDMustBeValid(to)

	if b.capacity <= 0 {
		panic(fmt.Sprintf("link %s: capacity must be positive, got %d",
			naming.BuildLinkName(from, to), b.capacity))
	}

	costs := make(map[protocol.Function]int, len(b.costs))
	for f, c := range b.costs {
		costs[f] = c
	}

	return &Link{
		NamedBase:   naming.MakeNamedBase(naming.BuildLinkName(from, to)),
		from:        from,
		to:          to,
		queue:       make(chan message.Item, b.capacity),
		defaultCost: b.defaultCost,
		costs:       costs,
	}
}
