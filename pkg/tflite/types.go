package tflite

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samcharles93/tflite/internal/capi"
)

// Status is the native status code returned by the engine.
type Status = capi.Status

const (
	StatusOK                     = capi.StatusOK
	StatusError                  = capi.StatusError
	StatusDelegateError          = capi.StatusDelegateError
	StatusApplicationError       = capi.StatusApplicationError
	StatusDelegateDataNotFound   = capi.StatusDelegateDataNotFound
	StatusDelegateDataWriteError = capi.StatusDelegateDataWriteError
	StatusDelegateDataReadError  = capi.StatusDelegateDataReadError
	StatusUnresolvedOps          = capi.StatusUnresolvedOps
)

// DataType is the element type of a tensor.
type DataType int

const (
	Bool DataType = iota + 1
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float16
	Float32
	Float64
)

var dataTypeInfo = map[DataType]struct {
	name   string
	size   int
	native capi.Type
}{
	Bool:    {"bool", 1, capi.TypeBool},
	Uint8:   {"uint8", 1, capi.TypeUInt8},
	Int8:    {"int8", 1, capi.TypeInt8},
	Uint16:  {"uint16", 2, capi.TypeUInt16},
	Int16:   {"int16", 2, capi.TypeInt16},
	Uint32:  {"uint32", 4, capi.TypeUInt32},
	Int32:   {"int32", 4, capi.TypeInt32},
	Uint64:  {"uint64", 8, capi.TypeUInt64},
	Int64:   {"int64", 8, capi.TypeInt64},
	Float16: {"float16", 2, capi.TypeFloat16},
	Float32: {"float32", 4, capi.TypeFloat32},
	Float64: {"float64", 8, capi.TypeFloat64},
}

// dataTypeFromNative maps a native type code onto the supported set.
func dataTypeFromNative(t capi.Type) (DataType, bool) {
	for dt, info := range dataTypeInfo {
		if info.native == t {
			return dt, true
		}
	}
	return 0, false
}

func (d DataType) String() string {
	if info, ok := dataTypeInfo[d]; ok {
		return info.name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// Size returns the element size in bytes, or 0 for an unknown type.
func (d DataType) Size() int {
	return dataTypeInfo[d].size
}

// IsInteger reports whether d is an integer type (excluding Bool).
func (d DataType) IsInteger() bool {
	switch d {
	case Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64:
		return true
	default:
		return false
	}
}

// ParseDataType parses the names returned by String.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for dt, info := range dataTypeInfo {
		if info.name == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// Shape is an immutable list of non-negative dimension sizes.
type Shape struct {
	dims []int
}

// NewShape copies dims. It panics on a negative dimension.
func NewShape(dims ...int) Shape {
	for _, d := range dims {
		if d < 0 {
			panic(fmt.Sprintf("tflite: negative dimension %d in shape %v", d, dims))
		}
	}
	return Shape{dims: append([]int(nil), dims...)}
}

// Dims returns a copy of the dimensions.
func (s Shape) Dims() []int {
	return append([]int(nil), s.dims...)
}

func (s Shape) Rank() int { return len(s.dims) }

func (s Shape) Dim(i int) int { return s.dims[i] }

// NumElements is the product of all dimensions (1 for a scalar).
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s.dims {
		n *= d
	}
	return n
}

func (s Shape) Equal(o Shape) bool {
	if len(s.dims) != len(o.dims) {
		return false
	}
	for i := range s.dims {
		if s.dims[i] != o.dims[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s.dims))
	for i, d := range s.dims {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// QuantizationParameters map quantized values to real values:
//
//	real = Scale * (quantized - ZeroPoint)
type QuantizationParameters struct {
	Scale     float32
	ZeroPoint int32
}

func (q QuantizationParameters) Dequantize(v int32) float32 {
	return q.Scale * float32(v-q.ZeroPoint)
}

// Quantize rounds r to the nearest quantized value. Clamping to the range of
// the tensor type is left to the caller. A zero scale maps everything to
// ZeroPoint.
func (q QuantizationParameters) Quantize(r float32) int32 {
	if q.Scale == 0 {
		return q.ZeroPoint
	}
	return int32(math.Round(float64(r/q.Scale))) + q.ZeroPoint
}
