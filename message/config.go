package message

import (
	"fmt"

	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/id"
)

// ConfigurationMessage advertises that Dest can be reached by a message whose
// stack has the given shape, at the given cost.
type ConfigurationMessage struct {
	ItemMeta

	Dest string
	Cost int

	stack protocol.Stack
}

// NewConfigurationMessage creates a configuration message. The stack is
// copied.
func NewConfigurationMessage(
	dest string,
	stack protocol.Stack,
	cost int,
) *ConfigurationMessage {
	return &ConfigurationMessage{
		ItemMeta: ItemMeta{ID: id.Default().Generate(), Kind: KindConfig},
		Dest:     dest,
		Cost:     cost,
		stack:    stack.Clone(),
	}
}

// Meta returns the meta data of the message.
func (m *ConfigurationMessage) Meta() *ItemMeta {
	return &m.ItemMeta
}

// StackCopy returns a copy of the advertised stack that the caller can modify.
func (m *ConfigurationMessage) StackCopy() protocol.Stack {
	return m.stack.Clone()
}

// StackKey returns the key of the advertised stack.
func (m *ConfigurationMessage) StackKey() protocol.StackKey {
	return m.stack.Key()
}

func (m *ConfigurationMessage) String() string {
	return fmt.Sprintf("conf %s dest=%s stack=%s cost=%d",
		m.ID, m.Dest, m.stack, m.Cost)
}
