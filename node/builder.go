package node

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/routing"
	"github.com/sarchlab/stackroute/sim/naming"
)

// Builder can build routers.
type Builder struct {
	functions      []protocol.Function
	log            logrus.FieldLogger
	maxStackHeight int
	onDelivered    func(*message.Message)
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		log:            logrus.StandardLogger(),
		maxStackHeight: message.DefaultMaxHeight,
	}
}

// WithFunctions sets the dialect of the router. Duplicates are removed.
func (b Builder) WithFunctions(fs ...protocol.Function) Builder {
	b.functions = append([]protocol.Function(nil), fs...)
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logrus.FieldLogger) Builder {
	b.log = l
	return b
}

// WithMaxStackHeight sets the highest stack the router learns routes for.
func (b Builder) WithMaxStackHeight(h int) Builder {
	b.maxStackHeight = h
	return b
}

// WithDestinationReached sets the function called when a data message
// reaches the router it is addressed to.
func (b Builder) WithDestinationReached(fn func(*message.Message)) Builder {
	b.onDelivered = fn
	return b
}

// Build creates a router.
func (b Builder) Build(id string) *Router {
	naming.IDMustBeValid(id)
	b.loggerMustBeGiven()

	for _, f := range b.functions {
		if f.IsZero() {
			panic("router " + id + ": zero adaptation function")
		}
	}

	functions := protocol.Dedup(b.functions)

	r := &Router{
		id:             id,
		functions:      functions,
		inSet:          protocol.InSet(functions),
		table:          routing.NewTable(),
		log:            b.log.WithField("node", id),
		maxStackHeight: b.maxStackHeight,
		onDelivered:    b.onDelivered,
	}

	if r.onDelivered == nil {
		r.onDelivered = r.logDelivered
	}

	for _, f := range functions {
		r.table.AddRoute(id, f.In(), id, f, 0)
	}

	return r
}

func (b Builder) loggerMustBeGiven() {
	if b.log == nil {
		panic("logger is not given")
	}
}

func (r *Router) logDelivered(msg *message.Message) {
	r.log.WithFields(logrus.Fields{
		"msg_id":  msg.ID,
		"src":     msg.Src,
		"stack":   msg.Stack.String(),
		"payload": msg.Payload,
	}).Info("message reached its destination")
}
