package flowgraph

import "github.com/flowgraph-go/flowgraph/internal/mux"

// Signature declares a block's port types. A block with zero input types is
// a source; zero output types is a sink.
type Signature struct {
	Inputs  []DataType
	Outputs []DataType
}

// Block is the contract every leaf node in a flowgraph implements.
//
// Process is called with exactly bufs.Count samples available on every
// input and at least bufs.Count samples of free space on every output (the
// mux guarantees this before calling in). It returns, per port, how many
// samples it actually consumed and produced; these may be less than
// bufs.Count (a block is never required to make full progress on a call),
// but consumed/produced on any port must never exceed what the buffers
// offered.
type Block interface {
	TypeSignature() Signature

	// SetRate is called once during rate propagation, in evaluation order,
	// with upstreamRate 0 for a source (no inputs) or the rate its input 0
	// is fed at otherwise. It returns the rate this block itself produces
	// at, which becomes the upstreamRate its downstream neighbours see. A
	// source block computes its own rate outright, ignoring the 0 it's
	// handed; every other block derives its output rate from upstreamRate.
	SetRate(upstreamRate float64) (float64, error)

	Initialize() error
	Deinitialize() error
	Process(bufs mux.Buffers) (consumed []int, produced []int, eof bool, err error)
}

// DefaultRate is embeddable by blocks whose output rate equals whatever
// rate they're handed (1:1 pass-through, or a source with no declared
// rate of its own).
type DefaultRate struct{}

func (DefaultRate) SetRate(upstreamRate float64) (float64, error) { return upstreamRate, nil }

// RawBlock is implemented by blocks that drive their own run loop instead
// of being called repeatedly by a threaded runner — typically sources or
// sinks bridging to blocking external I/O. Start must return once stop is
// closed.
type RawBlock interface {
	Block
	Start(stop <-chan struct{}) error
}
