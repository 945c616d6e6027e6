// Package id generates identifiers for messages exchanged by routers.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	// Generate an ID.
	Generate() string
}

// NewIDGenerator returns a generator that produces sequential IDs. Sequential
// IDs are easier to read in logs and recordings.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewParallelIDGenerator returns a generator backed by xid. IDs are globally
// unique and cheap to generate from many goroutines, but not deterministic.
func NewParallelIDGenerator() IDGenerator {
	return parallelIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID atomic.Uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(g.nextID.Add(1), 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}

var defaultGenerator atomic.Pointer[IDGenerator]

func init() {
	var g IDGenerator = parallelIDGenerator{}
	defaultGenerator.Store(&g)
}

// Default returns the generator used when a message is created without an
// explicit ID.
func Default() IDGenerator {
	return *defaultGenerator.Load()
}

// SetDefault replaces the default generator. It is meant to be called before
// a simulation starts, for example to get reproducible IDs in tests.
func SetDefault(g IDGenerator) {
	if g == nil {
		panic("id generator must not be nil")
	}

	defaultGenerator.Store(&g)
}

// Generate returns a new ID from the default generator.
func Generate() string {
	return Default().Generate()
}
