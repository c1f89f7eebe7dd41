package flowgraph

import (
	"unsafe"

	"github.com/flowgraph-go/flowgraph/internal/rc"
)

// RefCounted is the engine's opaque reference-counted sample payload
// (spec §9's design note): a handle to a heap-allocated value of T shared
// by however many downstream readers connect to the port that produced it.
// The ring buffer stores only an 8-byte registry-key slot per RefCounted sample;
// the payload itself never moves.
type RefCounted[T any] struct {
	header *rc.Header
}

// NewRefCounted boxes value with an initial refcount of 1. destroy, if
// non-nil, runs exactly once when the last reference is released.
func NewRefCounted[T any](value T, destroy func(T)) RefCounted[T] {
	boxed := new(T)
	*boxed = value
	var destroyFn func(unsafe.Pointer)
	if destroy != nil {
		destroyFn = func(p unsafe.Pointer) { destroy(*(*T)(p)) }
	}
	return RefCounted[T]{header: rc.NewHeader(unsafe.Pointer(boxed), destroyFn)}
}

// Value returns the boxed payload. Calling it after the last reference has
// been released returns the zero value of T.
func (r RefCounted[T]) Value() T {
	if r.header == nil || r.header.Payload == nil {
		var zero T
		return zero
	}
	return *(*T)(r.header.Payload)
}

// Retain increments the refcount, returning r unchanged for chaining.
func (r RefCounted[T]) Retain() RefCounted[T] {
	if r.header != nil {
		r.header.Add(1)
	}
	return r
}

// Release decrements the refcount, running destroy when it reaches zero.
func (r RefCounted[T]) Release() {
	if r.header != nil {
		r.header.Release()
	}
}

// Count returns the current refcount, mostly useful in tests.
func (r RefCounted[T]) Count() int32 {
	if r.header == nil {
		return 0
	}
	return r.header.Count()
}
