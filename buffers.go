package flowgraph

import "github.com/flowgraph-go/flowgraph/internal/mux"

// Buffers is what Process receives: typed views over every input and
// output port, sized per the spec's sample multiplexer contract.
type Buffers = mux.Buffers

// Sample is one port's current buffer view within a Buffers.
type Sample = mux.Sample

// Samples reinterprets a Sample's bytes as a slice of T. T must match the
// Sample's DataType (e.g. T=int16 for an Int16Type() port).
func Samples[T any](s Sample) []T {
	return mux.AsType[T](s)
}

// GetRefCounted decodes the i'th refcounted slot of a Sample.
func GetRefCounted[T any](s Sample, i int) RefCounted[T] {
	return RefCounted[T]{header: mux.RefCounted(s)[i]}
}

// PutRefCounted writes r into the i'th refcounted slot of a Sample. Used by
// a producing block to hand a freshly created RefCounted value downstream.
func PutRefCounted[T any](s Sample, i int, r RefCounted[T]) {
	mux.PutRefCounted(s, i, r.header)
}
