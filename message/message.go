// Package message defines the items that routers exchange: data messages that
// carry a payload wrapped in a protocol stack, and configuration messages that
// advertise reachability.
package message

import (
	"fmt"

	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/id"
)

// DefaultMaxHeight is the stack height a message can reach before it turns
// invalid.
const DefaultMaxHeight = 100

// Kind tells data messages apart from configuration messages.
type Kind uint8

// Item kinds.
const (
	KindData Kind = iota
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindConfig:
		return "config"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ItemMeta contains the meta data attached to every item.
type ItemMeta struct {
	ID   string
	Kind Kind
}

// An Item is anything that travels over a link.
type Item interface {
	Meta() *ItemMeta
}

// Message is a data message. Its stack is rewritten in place at every hop.
type Message struct {
	ItemMeta

	Src       string
	Dst       string
	Stack     protocol.Stack
	Payload   any
	MaxHeight int

	valid bool
}

// NewMessage creates a data message with the default max height.
func NewMessage(src, dst string, stack protocol.Stack, payload any) *Message {
	return MessageBuilder{}.
		WithSrc(src).
		WithDst(dst).
		WithStack(stack).
		WithPayload(payload).
		Build()
}

// Meta returns the meta data of the message.
func (m *Message) Meta() *ItemMeta {
	return &m.ItemMeta
}

// Valid reports whether the message can still be forwarded.
func (m *Message) Valid() bool {
	return m.valid
}

// Height returns the current height of the stack.
func (m *Message) Height() int {
	return len(m.Stack)
}

// Adapt applies f to the message stack in place. If the stack grows beyond
// MaxHeight, the message becomes invalid and the new stack is kept. An error
// is only returned when f is not applicable, in which case nothing changes.
func (m *Message) Adapt(f protocol.Function) error {
	err := f.ApplyInPlace(&m.Stack)
	if err != nil {
		return err
	}

	if len(m.Stack) > m.MaxHeight {
		m.valid = false
	}

	return nil
}

// Clone returns an independent copy of the message with a new ID.
func (m *Message) Clone() *Message {
	c := *m
	c.ID = id.Default().Generate()
	c.Stack = m.Stack.Clone()

	return &c
}

func (m *Message) String() string {
	return fmt.Sprintf("msg %s %s->%s %s", m.ID, m.Src, m.Dst, m.Stack)
}

// MessageBuilder can build data messages.
type MessageBuilder struct {
	id        string
	src, dst  string
	stack     protocol.Stack
	payload   any
	maxHeight int
	heightSet bool
}

// WithID sets the ID of the message. A fresh ID is generated otherwise.
func (b MessageBuilder) WithID(id string) MessageBuilder {
	b.id = id
	return b
}

// WithSrc sets the source router.
func (b MessageBuilder) WithSrc(src string) MessageBuilder {
	b.src = src
	return b
}

// WithDst sets the destination router.
func (b MessageBuilder) WithDst(dst string) MessageBuilder {
	b.dst = dst
	return b
}

// WithStack sets the initial stack. The stack is copied.
func (b MessageBuilder) WithStack(s protocol.Stack) MessageBuilder {
	b.stack = s
	return b
}

// WithPayload sets the payload.
func (b MessageBuilder) WithPayload(p any) MessageBuilder {
	b.payload = p
	return b
}

// WithMaxHeight sets the max height of the stack. DefaultMaxHeight is used
// if it is never called.
func (b MessageBuilder) WithMaxHeight(h int) MessageBuilder {
	b.maxHeight = h
	b.heightSet = true

	return b
}

// Build creates the message. A message whose initial stack is already higher
// than the max height is created invalid.
func (b MessageBuilder) Build() *Message {
	if !b.heightSet {
		b.maxHeight = DefaultMaxHeight
	}

	if b.maxHeight < 0 {
		panic(fmt.Sprintf("max height must not be negative, got %d", b.maxHeight))
	}

	if b.id == "" {
		b.id = id.Default().Generate()
	}

	m := &Message{
		ItemMeta:  ItemMeta{ID: b.id, Kind: KindData},
		Src:       b.src,
		Dst:       b.dst,
		Stack:     b.stack.Clone(),
		Payload:   b.payload,
		MaxHeight: b.maxHeight,
	}
	m.valid = len(m.Stack) <= m.MaxHeight

	return m
}
