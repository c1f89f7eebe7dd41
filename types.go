package flowgraph

import "github.com/flowgraph-go/flowgraph/internal/dtype"

// DataType re-exports the internal sample type enumeration for the public
// API, the way the teacher re-exports internal/constants in constants.go.
type DataType = dtype.DataType

// Kind identifies the shape of one sample element.
type Kind = dtype.Kind

const (
	Int8       = dtype.Int8
	Int16      = dtype.Int16
	Int32      = dtype.Int32
	Int64      = dtype.Int64
	Uint8      = dtype.Uint8
	Uint16     = dtype.Uint16
	Uint32     = dtype.Uint32
	Uint64     = dtype.Uint64
	Float32    = dtype.Float32
	Float64    = dtype.Float64
	Complex64  = dtype.Complex64
	Complex128 = dtype.Complex128
	// KindRefCounted is the Kind re-export; named apart from the rest of this
	// block because RefCounted itself names the public generic wrapper type
	// in refcount.go.
	KindRefCounted = dtype.RefCounted
)

var (
	Int8Type       = dtype.Int8Type
	Int16Type      = dtype.Int16Type
	Int32Type      = dtype.Int32Type
	Int64Type      = dtype.Int64Type
	Uint8Type      = dtype.Uint8Type
	Uint16Type     = dtype.Uint16Type
	Uint32Type     = dtype.Uint32Type
	Uint64Type     = dtype.Uint64Type
	Float32Type    = dtype.Float32Type
	Float64Type    = dtype.Float64Type
	Complex64Type  = dtype.Complex64Type
	Complex128Type = dtype.Complex128Type
	RefCountedType = dtype.RefCountedType
)
