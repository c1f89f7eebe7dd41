// Package mux implements the sample multiplexer (spec §4.3): the per-block
// view over a leaf block's input readers and output writers that turns raw
// ring-buffer bytes into typed sample counts for a block's process call.
package mux

import (
	"time"
	"unsafe"

	"github.com/flowgraph-go/flowgraph/internal/dtype"
	"github.com/flowgraph-go/flowgraph/internal/rc"
	"github.com/flowgraph-go/flowgraph/internal/ringbuf"
)

// Sample is a typed view over one port's current buffer contents: Count
// elements of Type, backed by Data. Registry is non-nil only for a
// refcounted port, and is the shared registry pinning every Header whose
// key currently sits in this connection's ring buffer.
type Sample struct {
	Data     []byte
	Type     dtype.DataType
	Count    int
	Registry *rc.Registry
}

// AsType reinterprets a Sample's bytes as a slice of T. Callers are
// responsible for choosing T consistent with the Sample's DataType; this is
// the "dispatch through a function pointer that packs typed slices from raw
// byte buffers" approach spec §9 calls for in place of compile-time type
// reflection.
func AsType[T any](s Sample) []T {
	if s.Count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&s.Data[0])), s.Count)
}

// RefCounted decodes a Sample of refcounted slots into their headers,
// resolved through s.Registry so the returned *Header is a live reference —
// the byte encoding alone, read back out of a ring buffer, identifies a
// Header but does not keep it reachable.
func RefCounted(s Sample) []*rc.Header {
	out := make([]*rc.Header, s.Count)
	for i := 0; i < s.Count; i++ {
		key := rc.GetSlot(s.Data[i*rc.SlotSize : i*rc.SlotSize+rc.SlotSize])
		out[i] = s.Registry.Resolve(key)
	}
	return out
}

// PutRefCounted pins h in s.Registry and writes its resulting slot key at
// index i of a Sample. h stays reachable through the registry until the
// mux's Update call unpins it (on the consumer side, once its refcount
// reaches zero).
func PutRefCounted(s Sample, i int, h *rc.Header) {
	key := s.Registry.Pin(h)
	rc.PutSlot(s.Data[i*rc.SlotSize:i*rc.SlotSize+rc.SlotSize], key)
}

// Buffers is what a block's process call receives: one Sample per input
// (each with exactly Count elements) and one Sample per output (each with
// up to its own available free space, which may exceed Count).
type Buffers struct {
	Inputs  []Sample
	Outputs []Sample
	Count   int
}

// Mux binds one leaf block's input reader set and output writer set.
type Mux struct {
	inputs      []*ringbuf.Reader
	inputTypes  []dtype.DataType
	outputs     []*ringbuf.Writer
	outputTypes []dtype.DataType
	// readerCounts[j] is the number of downstream readers attached to
	// outputs[j]'s buffer; zero means the output is unconnected and
	// production there is silently discarded (spec §4.3).
	readerCounts []int
	// registries[j] pins refcounted headers written to outputs[j] for as
	// long as their slot key sits in that connection's ring buffer; nil for
	// a non-refcounted or unconnected output. inputRegistries[i] is the
	// same registry shared with the upstream mux that owns inputs[i]'s
	// connection, so a key Pinned by the producer's mux resolves correctly
	// here on the consumer side.
	registries      []*rc.Registry
	inputRegistries []*rc.Registry
}

// New binds a Mux over the given readers/writers. The output slices must
// all have the same length, one entry per output port, in port order.
// registries holds one *rc.Registry per output port (nil where the port
// isn't refcounted), and inputRegistries holds one per input port — the
// same registry instance as the upstream mux's corresponding output entry,
// since a connection's producer and consumers must share a single registry
// for its refcounted slot keys to resolve.
func New(inputs []*ringbuf.Reader, inputTypes []dtype.DataType, inputRegistries []*rc.Registry, outputs []*ringbuf.Writer, outputTypes []dtype.DataType, readerCounts []int, registries []*rc.Registry) *Mux {
	return &Mux{
		inputs:          inputs,
		inputTypes:      inputTypes,
		inputRegistries: inputRegistries,
		outputs:         outputs,
		outputTypes:     outputTypes,
		readerCounts:    readerCounts,
		registries:      registries,
	}
}

func elemCount(availableBytes uint32, elemSize int) int {
	return int(availableBytes) / elemSize
}

// Wait blocks until every input has at least one sample available and every
// output has at least one sample of free space, then returns the minimum
// sample count across all ports. timeout <= 0 waits forever.
//
// Policy (spec §4.3): wake on any side's progress; on each wake, recompute
// every port's availability; if any input is still empty, wait on that
// reader next; otherwise if any output is still full, wait on that writer.
func (m *Mux) Wait(timeout time.Duration) (int, error) {
	hasDeadline := timeout > 0
	var deadline time.Time
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		remaining := timeout
		if hasDeadline {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return 0, ringbuf.ErrTimeout
			}
		}

		blocked := false
		for i, r := range m.inputs {
			if elemCount(r.Available(), m.inputTypes[i].ElemSize) == 0 {
				if err := r.WaitAvailable(uint32(m.inputTypes[i].ElemSize), remaining); err != nil {
					return 0, err
				}
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		for j, w := range m.outputs {
			if elemCount(w.Available(), m.outputTypes[j].ElemSize) == 0 {
				if err := w.WaitAvailable(uint32(m.outputTypes[j].ElemSize), remaining); err != nil {
					return 0, err
				}
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}

		min := -1
		for i, r := range m.inputs {
			c := elemCount(r.Available(), m.inputTypes[i].ElemSize)
			if min == -1 || c < min {
				min = c
			}
		}
		for j, w := range m.outputs {
			c := elemCount(w.Available(), m.outputTypes[j].ElemSize)
			if min == -1 || c < min {
				min = c
			}
		}
		if min == -1 {
			// Zero ports on both sides: nothing to synchronize on.
			return 0, nil
		}
		return min, nil
	}
}

// Get waits for availability (forever) and returns typed buffer views: each
// input holds exactly the returned count, each output holds up to its full
// current free space.
func (m *Mux) Get() (Buffers, error) {
	return m.GetWithTimeout(0)
}

// GetWithTimeout is Get with a bounded wait, so a block runner can poll its
// control mailbox between attempts instead of blocking forever on the ring
// buffer's condition variables. timeout <= 0 waits forever.
func (m *Mux) GetWithTimeout(timeout time.Duration) (Buffers, error) {
	count, err := m.Wait(timeout)
	if err != nil {
		return Buffers{}, err
	}

	bufs := Buffers{
		Inputs:  make([]Sample, len(m.inputs)),
		Outputs: make([]Sample, len(m.outputs)),
		Count:   count,
	}
	for i, r := range m.inputs {
		t := m.inputTypes[i]
		n := count
		var reg *rc.Registry
		if t.IsRefCounted() {
			reg = m.inputRegistries[i]
		}
		bufs.Inputs[i] = Sample{Data: sliceBytes(r.Buffer(), n*t.ElemSize), Type: t, Count: n, Registry: reg}
	}
	for j, w := range m.outputs {
		t := m.outputTypes[j]
		data := w.Buffer()
		n := len(data) / t.ElemSize
		var reg *rc.Registry
		if t.IsRefCounted() {
			reg = m.registries[j]
		}
		bufs.Outputs[j] = Sample{Data: sliceBytes(data, n*t.ElemSize), Type: t, Count: n, Registry: reg}
	}
	return bufs, nil
}

func sliceBytes(b []byte, n int) []byte {
	if n > len(b) {
		n = len(b)
	}
	return b[:n]
}

// Update advances each reader by consumed[i] elements and each writer by
// produced[j] elements, running reference-count bookkeeping for refcounted
// ports along the way (spec §4.3).
func (m *Mux) Update(consumed, produced []int) {
	for i, r := range m.inputs {
		c := consumed[i]
		if c == 0 {
			continue
		}
		t := m.inputTypes[i]
		if t.IsRefCounted() {
			reg := m.inputRegistries[i]
			data := r.Buffer()
			for k := 0; k < c; k++ {
				key := rc.GetSlot(data[k*rc.SlotSize : k*rc.SlotSize+rc.SlotSize])
				if h := reg.Resolve(key); h != nil {
					if h.Release() {
						reg.Unpin(key)
					}
				}
			}
		}
		r.Commit(uint32(c * t.ElemSize))
	}

	for j, w := range m.outputs {
		p := produced[j]
		if p == 0 {
			continue
		}
		t := m.outputTypes[j]
		readers := m.readerCounts[j]
		if t.IsRefCounted() {
			reg := m.registries[j]
			data := w.Buffer()
			for k := 0; k < p; k++ {
				slot := data[k*rc.SlotSize : k*rc.SlotSize+rc.SlotSize]
				key := rc.GetSlot(slot)
				h := reg.Resolve(key)
				if h == nil {
					continue
				}
				switch {
				case readers == 0:
					// rc was 1 at production time; drop to 0 now and unpin.
					if h.Release() {
						reg.Unpin(key)
					}
				case readers == 1:
					// Leave as-is: single reader inherits the producer's ref.
				default:
					h.Add(int32(readers - 1))
				}
			}
		}
		if readers > 0 {
			w.Commit(uint32(p * t.ElemSize))
		} else {
			// Zero readers: discard. Still advance the cursor so the
			// block's own accounting of bytes produced stays consistent,
			// but nothing downstream will ever see these bytes.
			w.Commit(uint32(p * t.ElemSize))
		}
	}
}

// SetEOS closes every reader and writer bound to this mux, unblocking both
// neighbours.
func (m *Mux) SetEOS() {
	for _, r := range m.inputs {
		r.Close()
	}
	for _, w := range m.outputs {
		w.Close()
	}
}
