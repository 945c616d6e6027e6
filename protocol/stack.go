// Package protocol implements protocol stacks and the adaptation functions
// that convert, encapsulate and decapsulate them.
//
// A stack is ordered bottom to top: the last element is the most recently
// added layer. Adaptation functions always work on the top of the stack.
package protocol

import (
	"strings"
)

// Protocol identifies one network-layer dialect. Only identity matters.
type Protocol string

// Stack is an ordered sequence of protocols. The top of the stack is the last
// element.
type Stack []Protocol

// ParseStack builds a stack from a string where every character is one
// protocol, bottom first. ParseStack("xy") is the stack with x at the bottom
// and y on top.
func ParseStack(s string) Stack {
	stack := make(Stack, 0, len(s))
	for _, r := range s {
		stack = append(stack, Protocol(r))
	}

	return stack
}

// Len returns the height of the stack.
func (s Stack) Len() int {
	return len(s)
}

// Top returns the top protocol, or false if the stack is empty.
func (s Stack) Top() (Protocol, bool) {
	if len(s) == 0 {
		return "", false
	}

	return s[len(s)-1], true
}

// Push adds protocols on top of the stack, in order.
func (s *Stack) Push(p ...Protocol) {
	*s = append(*s, p...)
}

// Pop removes and returns the top protocol, or false if the stack is empty.
func (s *Stack) Pop() (Protocol, bool) {
	if len(*s) == 0 {
		return "", false
	}

	top := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]

	return top, true
}

// Clone returns an independent copy of the stack.
func (s Stack) Clone() Stack {
	if s == nil {
		return Stack{}
	}

	c := make(Stack, len(s))
	copy(c, s)

	return c
}

// Equal reports whether two stacks hold the same protocols in the same order.
func (s Stack) Equal(o Stack) bool {
	if len(s) != len(o) {
		return false
	}

	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}

	return true
}

// HasSuffix reports whether the top len(suffix) protocols of s equal suffix,
// in order.
func (s Stack) HasSuffix(suffix Stack) bool {
	if len(suffix) > len(s) {
		return false
	}

	return s[len(s)-len(suffix):].Equal(suffix)
}

// Key returns an immutable value that identifies the content of the stack.
// Two stacks have the same key if and only if they are Equal.
func (s Stack) Key() StackKey {
	if len(s) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range s {
		if i > 0 {
			b.WriteByte(keySeparator)
		}
		b.WriteString(string(p))
	}

	return StackKey(b.String())
}

// String renders the stack bottom to top, for example <x-y>.
func (s Stack) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = string(p)
	}

	return "<" + strings.Join(parts, "-") + ">"
}

// Compact renders the stack as the concatenation of its protocols. It is the
// inverse of ParseStack for single-character protocols.
func (s Stack) Compact() string {
	var b strings.Builder
	for _, p := range s {
		b.WriteString(string(p))
	}

	return b.String()
}

const keySeparator = '\x1f'

// StackKey is the comparable form of a Stack. It can be used as a map key.
type StackKey string

// Stack rebuilds the stack the key was made from.
func (k StackKey) Stack() Stack {
	if k == "" {
		return Stack{}
	}

	parts := strings.Split(string(k), string(keySeparator))
	s := make(Stack, len(parts))
	for i, p := range parts {
		s[i] = Protocol(p)
	}

	return s
}

// Len returns the height of the stack the key was made from.
func (k StackKey) Len() int {
	if k == "" {
		return 0
	}

	return strings.Count(string(k), string(keySeparator)) + 1
}
