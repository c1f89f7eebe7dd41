package blocks

import (
	"math/rand"
	"unsafe"

	"github.com/flowgraph-go/flowgraph"
	"github.com/flowgraph-go/flowgraph/internal/bufpool"
)

// SliceSource is a source block that emits the elements of a fixed slice,
// in order, then signals end of stream. Useful for feeding a pipeline a
// known sequence of non-byte samples (e.g. uint32) in tests.
type SliceSource[T any] struct {
	values []T
	dtype  flowgraph.DataType

	// SampleRate is this source's own declared output rate. A source
	// computes its rate itself rather than inheriting one, so this
	// defaults to 1.0 when left unset.
	SampleRate float64

	emitted int
}

// NewSliceSource creates a SliceSource emitting values, declaring its
// single output port as dtype.
func NewSliceSource[T any](values []T, dtype flowgraph.DataType) *SliceSource[T] {
	return &SliceSource[T]{values: values, dtype: dtype, SampleRate: 1.0}
}

func (s *SliceSource[T]) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{Outputs: []flowgraph.DataType{s.dtype}}
}

// SetRate ignores upstreamRate (always 0 for a source) and declares its
// own SampleRate.
func (s *SliceSource[T]) SetRate(float64) (float64, error) { return s.SampleRate, nil }

func (s *SliceSource[T]) Initialize() error   { return nil }
func (s *SliceSource[T]) Deinitialize() error { return nil }

func (s *SliceSource[T]) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	out := flowgraph.Samples[T](bufs.Outputs[0])
	remaining := len(s.values) - s.emitted
	n := bufs.Count
	if n > remaining {
		n = remaining
	}
	if n > len(out) {
		n = len(out)
	}
	copy(out[:n], s.values[s.emitted:s.emitted+n])
	s.emitted += n
	return nil, []int{n}, s.emitted >= len(s.values), nil
}

// RandomSource is a source block that never reaches end of stream, filling
// its output with pseudo-random bytes on every call. Used to exercise
// Flowgraph.Stop against a block that would otherwise run forever.
type RandomSource struct {
	// SampleRate is this source's own declared output rate.
	SampleRate float64

	rnd *rand.Rand
}

func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rnd: rand.New(rand.NewSource(seed)), SampleRate: 1.0}
}

func (s *RandomSource) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{Outputs: []flowgraph.DataType{flowgraph.Uint8Type()}}
}

func (s *RandomSource) SetRate(float64) (float64, error) { return s.SampleRate, nil }

func (s *RandomSource) Initialize() error   { return nil }
func (s *RandomSource) Deinitialize() error { return nil }

func (s *RandomSource) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	out := bufs.Outputs[0]
	n := bufs.Count
	if n > len(out.Data) {
		n = len(out.Data)
	}
	s.rnd.Read(out.Data[:n])
	return nil, []int{n}, false, nil
}

var (
	_ flowgraph.Block = (*SliceSource[uint32])(nil)
	_ flowgraph.Block = (*RandomSource)(nil)
)

// ConstSource is a source block (no inputs) that emits a repeating byte
// pattern until it has produced Count bytes, then signals end of stream.
type ConstSource struct {
	Pattern []byte
	Count   int64

	// SampleRate is this source's own declared output rate.
	SampleRate float64

	emitted int64
}

func NewConstSource(pattern []byte, count int64) *ConstSource {
	return &ConstSource{Pattern: pattern, Count: count, SampleRate: 1.0}
}

func (s *ConstSource) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{Outputs: []flowgraph.DataType{flowgraph.Uint8Type()}}
}

func (s *ConstSource) SetRate(float64) (float64, error) { return s.SampleRate, nil }

func (s *ConstSource) Initialize() error   { return nil }
func (s *ConstSource) Deinitialize() error { return nil }

func (s *ConstSource) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	out := bufs.Outputs[0]
	remaining := s.Count - s.emitted
	n := bufs.Count
	if int64(n) > remaining {
		n = int(remaining)
	}
	for i := 0; i < n; i++ {
		out.Data[i] = s.Pattern[int(s.emitted+int64(i))%len(s.Pattern)]
	}
	s.emitted += int64(n)
	return nil, []int{n}, s.emitted >= s.Count, nil
}

var _ flowgraph.Block = (*ConstSource)(nil)

// Inverter is a 1-in/1-out block that bitwise-inverts every byte it sees.
type Inverter struct {
	flowgraph.DefaultRate
}

func NewInverter() *Inverter { return &Inverter{} }

func (v *Inverter) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{
		Inputs:  []flowgraph.DataType{flowgraph.Uint8Type()},
		Outputs: []flowgraph.DataType{flowgraph.Uint8Type()},
	}
}

func (v *Inverter) Initialize() error   { return nil }
func (v *Inverter) Deinitialize() error { return nil }

func (v *Inverter) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	in := bufs.Inputs[0]
	out := bufs.Outputs[0]
	n := bufs.Count
	for i := 0; i < n; i++ {
		out.Data[i] = ^in.Data[i]
	}
	return []int{n}, []int{n}, false, nil
}

var _ flowgraph.Block = (*Inverter)(nil)

// Adder is a 2-in/1-out block that sums uint32 samples elementwise.
type Adder struct {
	flowgraph.DefaultRate
}

func NewAdder() *Adder { return &Adder{} }

func (a *Adder) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{
		Inputs:  []flowgraph.DataType{flowgraph.Uint32Type(), flowgraph.Uint32Type()},
		Outputs: []flowgraph.DataType{flowgraph.Uint32Type()},
	}
}

func (a *Adder) Initialize() error   { return nil }
func (a *Adder) Deinitialize() error { return nil }

func (a *Adder) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	x := flowgraph.Samples[uint32](bufs.Inputs[0])
	y := flowgraph.Samples[uint32](bufs.Inputs[1])
	out := flowgraph.Samples[uint32](bufs.Outputs[0])
	n := bufs.Count
	for i := 0; i < n; i++ {
		out[i] = x[i] + y[i]
	}
	return []int{n, n}, []int{n}, false, nil
}

var _ flowgraph.Block = (*Adder)(nil)

// RateHalver is a 1-in/1-out block that decimates by two: it only makes
// progress in pairs, keeping the first sample of every pair and dropping
// the second. SetRate halves the upstream rate it's handed, so rate
// propagation halves every downstream block's effective sample rate.
type RateHalver struct {
	rate float64
}

func NewRateHalver() *RateHalver { return &RateHalver{} }

func (r *RateHalver) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{
		Inputs:  []flowgraph.DataType{flowgraph.Int16Type()},
		Outputs: []flowgraph.DataType{flowgraph.Int16Type()},
	}
}

func (r *RateHalver) SetRate(upstreamRate float64) (float64, error) {
	r.rate = upstreamRate / 2
	return r.rate, nil
}
func (r *RateHalver) Rate() float64      { return r.rate }
func (r *RateHalver) Initialize() error   { return nil }
func (r *RateHalver) Deinitialize() error { return nil }

func (r *RateHalver) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	in := flowgraph.Samples[int16](bufs.Inputs[0])
	out := flowgraph.Samples[int16](bufs.Outputs[0])

	pairs := bufs.Count / 2
	if pairs > len(out) {
		pairs = len(out)
	}
	for i := 0; i < pairs; i++ {
		out[i] = in[i*2]
	}
	return []int{pairs * 2}, []int{pairs}, false, nil
}

var _ flowgraph.Block = (*RateHalver)(nil)

// Resampler is a 1-in/1-out block that converts sample rate by an integer
// up/down ratio: every input sample is repeated up times into a pooled
// staging buffer, then every down'th staged sample is kept. This is a
// nearest-neighbour conversion, not a band-limited one — good enough as a
// reference block exercising rate propagation with a ratio other than 1:1
// or 1:2.
type Resampler struct {
	up, down int
}

// NewResampler creates a Resampler that produces up samples for every down
// consumed.
func NewResampler(up, down int) *Resampler {
	return &Resampler{up: up, down: down}
}

func (r *Resampler) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{
		Inputs:  []flowgraph.DataType{flowgraph.Int16Type()},
		Outputs: []flowgraph.DataType{flowgraph.Int16Type()},
	}
}

// SetRate scales the upstream rate by up/down, the ratio this block
// actually resamples by.
func (r *Resampler) SetRate(upstreamRate float64) (float64, error) {
	return upstreamRate * float64(r.up) / float64(r.down), nil
}
func (r *Resampler) Initialize() error   { return nil }
func (r *Resampler) Deinitialize() error { return nil }

func (r *Resampler) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	in := flowgraph.Samples[int16](bufs.Inputs[0])
	out := flowgraph.Samples[int16](bufs.Outputs[0])
	n := bufs.Count
	if n == 0 {
		return []int{0}, []int{0}, false, nil
	}

	stagingBytes := bufpool.Get(n * r.up * 2)
	defer bufpool.Put(stagingBytes)
	staging := unsafe.Slice((*int16)(unsafe.Pointer(&stagingBytes[0])), n*r.up)

	for i := 0; i < n; i++ {
		for k := 0; k < r.up; k++ {
			staging[i*r.up+k] = in[i]
		}
	}

	produced0 := 0
	for i := 0; i < len(staging) && produced0 < len(out); i += r.down {
		out[produced0] = staging[i]
		produced0++
	}

	return []int{n}, []int{produced0}, false, nil
}

var _ flowgraph.Block = (*Resampler)(nil)

// CollectorSink is a 1-in/0-out sink block that appends every byte it sees
// into a ShardedBuffer for later inspection, the way a test harness
// observes a pipeline's final output.
type CollectorSink struct {
	flowgraph.DefaultRate

	buf *ShardedBuffer
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{buf: NewShardedBuffer()}
}

func (c *CollectorSink) TypeSignature() flowgraph.Signature {
	return flowgraph.Signature{Inputs: []flowgraph.DataType{flowgraph.Uint8Type()}}
}

func (c *CollectorSink) Initialize() error   { return nil }
func (c *CollectorSink) Deinitialize() error { return nil }

func (c *CollectorSink) Process(bufs flowgraph.Buffers) (consumed, produced []int, eof bool, err error) {
	in := bufs.Inputs[0]
	n := bufs.Count
	if n > 0 {
		if _, err := c.buf.Write(in.Data[:n]); err != nil {
			return nil, nil, false, err
		}
	}
	return []int{n}, nil, false, nil
}

// Collected returns a copy of every byte the sink has consumed so far.
func (c *CollectorSink) Collected() []byte { return c.buf.Bytes() }

var _ flowgraph.Block = (*CollectorSink)(nil)
