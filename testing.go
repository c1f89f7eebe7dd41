package flowgraph

import (
	"sync"

	"github.com/flowgraph-go/flowgraph/internal/mux"
)

// RecordingBlock is a test fixture Block that records every lifecycle call
// it receives, the way the teacher's MockBackend tracks read/write/flush
// calls for assertions in its own tests. ProcessFunc, if set, is called for
// every Process invocation; if nil, Process copies bytes straight through
// from input 0 to output 0 (useful for wiring tests that don't care about
// block semantics).
type RecordingBlock struct {
	Signature Signature

	// SampleRate is the rate this block declares as its own when it has no
	// inputs (a source). Ignored for blocks with inputs, which pass
	// upstreamRate through unchanged.
	SampleRate float64

	ProcessFunc func(bufs Buffers) (consumed, produced []int, eof bool, err error)

	mu                sync.Mutex
	initializeCalls   int
	deinitializeCalls int
	processCalls      int
	lastRate          float64
	closed            bool
}

// NewRecordingBlock creates a RecordingBlock with the given signature.
func NewRecordingBlock(sig Signature) *RecordingBlock {
	return &RecordingBlock{Signature: sig}
}

func (b *RecordingBlock) TypeSignature() Signature { return b.Signature }

// SetRate records upstreamRate for LastRate and returns this block's own
// rate: SampleRate if it's a source (no inputs), else upstreamRate
// unchanged.
func (b *RecordingBlock) SetRate(upstreamRate float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastRate = upstreamRate
	if len(b.Signature.Inputs) == 0 {
		return b.SampleRate, nil
	}
	return upstreamRate, nil
}

func (b *RecordingBlock) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initializeCalls++
	return nil
}

func (b *RecordingBlock) Deinitialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deinitializeCalls++
	b.closed = true
	return nil
}

func (b *RecordingBlock) Process(bufs mux.Buffers) (consumed, produced []int, eof bool, err error) {
	b.mu.Lock()
	b.processCalls++
	b.mu.Unlock()

	if b.ProcessFunc != nil {
		return b.ProcessFunc(bufs)
	}

	n := bufs.Count
	if len(bufs.Outputs) > 0 && n > len(bufs.Outputs[0].Data) {
		n = len(bufs.Outputs[0].Data)
	}
	if len(bufs.Inputs) > 0 && len(bufs.Outputs) > 0 {
		copy(bufs.Outputs[0].Data[:n], bufs.Inputs[0].Data[:n])
	}
	consumed = make([]int, len(bufs.Inputs))
	produced = make([]int, len(bufs.Outputs))
	for i := range consumed {
		consumed[i] = n
	}
	for i := range produced {
		produced[i] = n
	}
	return consumed, produced, false, nil
}

// InitializeCalls returns how many times Initialize has been called.
func (b *RecordingBlock) InitializeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initializeCalls
}

// DeinitializeCalls returns how many times Deinitialize has been called.
func (b *RecordingBlock) DeinitializeCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deinitializeCalls
}

// ProcessCalls returns how many times Process has been called.
func (b *RecordingBlock) ProcessCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processCalls
}

// LastRate returns the most recent value passed to SetRate.
func (b *RecordingBlock) LastRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRate
}

// IsClosed reports whether Deinitialize has run.
func (b *RecordingBlock) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

var _ Block = (*RecordingBlock)(nil)
