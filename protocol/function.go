package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFunction is returned when the shape of an adaptation
	// function does not match its kind.
	ErrInvalidFunction = errors.New("protocol: invalid adaptation function")

	// ErrNotApplicable is returned when a function is applied to a stack
	// whose top does not match the function input.
	ErrNotApplicable = errors.New("protocol: adaptation function not applicable")
)

// Kind is the type of transformation an adaptation function performs.
type Kind uint8

// The three kinds of adaptation functions.
const (
	KindConvert Kind = iota + 1
	KindEncapsulate
	KindDecapsulate
)

func (k Kind) String() string {
	switch k {
	case KindConvert:
		return "conv"
	case KindEncapsulate:
		return "encap"
	case KindDecapsulate:
		return "decap"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Function is an adaptation function. It rewrites the top of a stack that
// matches From into To.
//
//   - conversion:    x  -> y   replaces the top protocol;
//   - encapsulation: x  -> xy  pushes y on top of x;
//   - decapsulation: xy -> x   pops y and exposes x.
//
// Function is a comparable value: two functions with the same From, To and
// Kind are equal and can be used interchangeably as map keys.
type Function struct {
	from StackKey
	to   StackKey
	kind Kind
}

// NewFunction creates an adaptation function and checks that its shape
// matches its kind.
func NewFunction(from, to Stack, kind Kind) (Function, error) {
	err := validateShape(from, to, kind)
	if err != nil {
		return Function{}, err
	}

	return Function{from: from.Key(), to: to.Key(), kind: kind}, nil
}

// MustFunction is like NewFunction but panics if the shape is invalid.
func MustFunction(from, to Stack, kind Kind) Function {
	f, err := NewFunction(from, to, kind)
	if err != nil {
		panic(err)
	}

	return f
}

// NewConversion creates the conversion x -> y.
func NewConversion(x, y Protocol) Function {
	return MustFunction(Stack{x}, Stack{y}, KindConvert)
}

// NewEncapsulation creates the encapsulation x -> xy.
func NewEncapsulation(x, y Protocol) Function {
	return MustFunction(Stack{x}, Stack{x, y}, KindEncapsulate)
}

// NewDecapsulation creates the decapsulation xy -> x.
func NewDecapsulation(x, y Protocol) Function {
	return MustFunction(Stack{x, y}, Stack{x}, KindDecapsulate)
}

func validateShape(from, to Stack, kind Kind) error {
	for _, p := range append(from.Clone(), to...) {
		if p == "" || strings.ContainsRune(string(p), keySeparator) {
			return fmt.Errorf("%w: invalid protocol %q", ErrInvalidFunction, p)
		}
	}

	switch kind {
	case KindConvert:
		if len(from) != 1 || len(to) != 1 {
			return fmt.Errorf(
				"%w: conversion takes 1 protocol in and 1 out, got %s -> %s",
				ErrInvalidFunction, from, to)
		}
	case KindEncapsulate:
		if len(from) != 1 || len(to) != 2 {
			return fmt.Errorf(
				"%w: encapsulation takes 1 protocol in and 2 out, got %s -> %s",
				ErrInvalidFunction, from, to)
		}
		if from[0] != to[0] {
			return fmt.Errorf(
				"%w: encapsulation can not change the inner protocol, got %s -> %s",
				ErrInvalidFunction, from, to)
		}
	case KindDecapsulate:
		if len(from) != 2 || len(to) != 1 {
			return fmt.Errorf(
				"%w: decapsulation takes 2 protocols in and 1 out, got %s -> %s",
				ErrInvalidFunction, from, to)
		}
		if from[0] != to[0] {
			return fmt.Errorf(
				"%w: decapsulation can not change the inner protocol, got %s -> %s",
				ErrInvalidFunction, from, to)
		}
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidFunction, kind)
	}

	return nil
}

// ParseFunction parses the compact notation used by scenarios, where every
// character is a protocol: "x>y" is a conversion, "x>xy" an encapsulation and
// "xy>x" a decapsulation. The kind is inferred from the lengths.
func ParseFunction(s string) (Function, error) {
	lhs, rhs, found := strings.Cut(strings.TrimSpace(s), ">")
	if !found {
		return Function{}, fmt.Errorf("%w: %q is not of the form in>out",
			ErrInvalidFunction, s)
	}

	from := ParseStack(strings.TrimSpace(lhs))
	to := ParseStack(strings.TrimSpace(rhs))

	var kind Kind
	switch {
	case len(from) == 1 && len(to) == 1:
		kind = KindConvert
	case len(from) == 1 && len(to) == 2:
		kind = KindEncapsulate
	case len(from) == 2 && len(to) == 1:
		kind = KindDecapsulate
	default:
		return Function{}, fmt.Errorf("%w: can not infer the kind of %q",
			ErrInvalidFunction, s)
	}

	return NewFunction(from, to, kind)
}

// MustParseFunction is like ParseFunction but panics on error.
func MustParseFunction(s string) Function {
	f, err := ParseFunction(s)
	if err != nil {
		panic(err)
	}

	return f
}

// IsZero reports whether f is the zero Function, which is not a valid
// adaptation function.
func (f Function) IsZero() bool {
	return f.kind == 0
}

// Kind returns the kind of the function.
func (f Function) Kind() Kind {
	return f.kind
}

// From returns a copy of the input shape.
func (f Function) From() Stack {
	return f.from.Stack()
}

// To returns a copy of the output shape.
func (f Function) To() Stack {
	return f.to.Stack()
}

// In is the stack shape the function accepts. It is what a router advertises
// to its neighbours when it starts.
func (f Function) In() Stack {
	return f.From()
}

// Out is the stack shape the function produces.
func (f Function) Out() Stack {
	return f.To()
}

// Applicable reports whether the top of s matches the input of f.
func (f Function) Applicable(s Stack) bool {
	if f.IsZero() {
		return false
	}

	return s.HasSuffix(f.From())
}

// Apply returns the stack obtained by applying f to s. The input stack is not
// modified.
func (f Function) Apply(s Stack) (Stack, error) {
	if !f.Applicable(s) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotApplicable, f, s)
	}

	out := s.Clone()
	f.rewrite(&out)

	return out, nil
}

// ApplyInPlace applies f to the stack in place. It returns ErrNotApplicable
// and leaves the stack untouched when f does not apply.
func (f Function) ApplyInPlace(s *Stack) error {
	if !f.Applicable(*s) {
		return fmt.Errorf("%w: %s on %s", ErrNotApplicable, f, *s)
	}

	f.rewrite(s)

	return nil
}

func (f Function) rewrite(s *Stack) {
	to := f.To()

	switch f.kind {
	case KindConvert:
		s.Pop()
		s.Push(to[0])
	case KindEncapsulate:
		s.Push(to[1])
	case KindDecapsulate:
		s.Pop()
	}
}

// Reverse returns the function that undoes f. Conversions reverse to
// conversions, encapsulations to decapsulations and the other way around.
func (f Function) Reverse() Function {
	kind := f.kind
	switch f.kind {
	case KindEncapsulate:
		kind = KindDecapsulate
	case KindDecapsulate:
		kind = KindEncapsulate
	}

	return Function{from: f.to, to: f.from, kind: kind}
}

// Notation returns the compact form accepted by ParseFunction, for example
// "x>xy".
func (f Function) Notation() string {
	return f.From().Compact() + ">" + f.To().Compact()
}

// String returns a readable form such as f('x' → 'xy', encap).
func (f Function) String() string {
	return fmt.Sprintf("f('%s' → '%s', %s)",
		f.From().Compact(), f.To().Compact(), f.kind)
}

// InSet returns the distinct input shapes of a set of functions, in the order
// they first appear.
func InSet(functions []Function) []Stack {
	seen := make(map[StackKey]bool)
	in := make([]Stack, 0, len(functions))

	for _, f := range functions {
		if seen[f.from] {
			continue
		}

		seen[f.from] = true
		in = append(in, f.In())
	}

	return in
}

// OutSet returns the distinct output shapes of a set of functions, in the
// order they first appear.
func OutSet(functions []Function) []Stack {
	seen := make(map[StackKey]bool)
	out := make([]Stack, 0, len(functions))

	for _, f := range functions {
		if seen[f.to] {
			continue
		}

		seen[f.to] = true
		out = append(out, f.Out())
	}

	return out
}

// Dedup removes duplicated functions, keeping the first occurrence.
func Dedup(functions []Function) []Function {
	seen := make(map[Function]bool)
	unique := make([]Function, 0, len(functions))

	for _, f := range functions {
		if seen[f] {
			continue
		}

		seen[f] = true
		unique = append(unique, f)
	}

	return unique
}
