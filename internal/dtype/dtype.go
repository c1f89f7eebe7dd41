// Package dtype defines the small enumeration of sample data kinds the
// engine plumbs between blocks at runtime, replacing the compile-time type
// reflection a host-language implementation would use to derive a block's
// type signature. Block authors declare their signature explicitly; the
// engine never inspects a process function's parameter types.
package dtype

import "fmt"

// Kind identifies the shape of one sample element.
type Kind uint8

const (
	Int8 Kind = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
	RefCounted
)

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	case RefCounted:
		return "refcounted"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// kindSizes gives the natural element size in bytes for every non-opaque
// kind. RefCounted elements are stored as an 8-byte pointer-sized slot
// regardless of the boxed payload's actual size; see internal/rc.
var kindSizes = [...]int{
	Int8:       1,
	Int16:      2,
	Int32:      4,
	Int64:      8,
	Uint8:      1,
	Uint16:     2,
	Uint32:     4,
	Uint64:     8,
	Float32:    4,
	Float64:    8,
	Complex64:  8,
	Complex128: 16,
	RefCounted: 8,
}

// DataType is a port's wire type: a kind plus its element size in bytes.
// Two DataTypes are equal (and thus connectable) iff both fields match.
type DataType struct {
	Kind     Kind
	ElemSize int
}

func of(k Kind) DataType {
	return DataType{Kind: k, ElemSize: kindSizes[k]}
}

func Int8Type() DataType       { return of(Int8) }
func Int16Type() DataType      { return of(Int16) }
func Int32Type() DataType      { return of(Int32) }
func Int64Type() DataType      { return of(Int64) }
func Uint8Type() DataType      { return of(Uint8) }
func Uint16Type() DataType     { return of(Uint16) }
func Uint32Type() DataType     { return of(Uint32) }
func Uint64Type() DataType     { return of(Uint64) }
func Float32Type() DataType    { return of(Float32) }
func Float64Type() DataType    { return of(Float64) }
func Complex64Type() DataType  { return of(Complex64) }
func Complex128Type() DataType { return of(Complex128) }

// RefCountedType returns the wire type for an opaque reference-counted
// record. elemSize is ignored and not stored: the returned ElemSize is always
// 8, since the ring buffer moves refcounted samples as 8-byte slots (see
// internal/rc).
func RefCountedType(elemSize int) DataType {
	return DataType{Kind: RefCounted, ElemSize: kindSizes[RefCounted]}
}

// Equal reports whether two data types are identical.
func (d DataType) Equal(o DataType) bool {
	return d.Kind == o.Kind && d.ElemSize == o.ElemSize
}

func (d DataType) String() string {
	return fmt.Sprintf("%s(%d)", d.Kind, d.ElemSize)
}

// IsRefCounted reports whether d carries opaque reference-counted records.
func (d DataType) IsRefCounted() bool {
	return d.Kind == RefCounted
}
