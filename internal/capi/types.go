// Package capi declares the subset of the TensorFlow Lite C API used by this
// module. It carries no logic beyond thin call wrappers, enumerations of the
// native status and type codes, and default values for delegate options.
//
// The cgo declarations are compiled only with the `tflite` build tag; without
// it every constructor returns nil and Available reports false.
package capi

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrUnavailable is reported by callers when the native library is not linked.
var ErrUnavailable = errors.New("tensorflow lite C library not linked (build with -tags tflite)")

// Status mirrors TfLiteStatus.
type Status int

const (
	StatusOK                     Status = 0
	StatusError                  Status = 1
	StatusDelegateError          Status = 2
	StatusApplicationError       Status = 3
	StatusDelegateDataNotFound   Status = 4
	StatusDelegateDataWriteError Status = 5
	StatusDelegateDataReadError  Status = 6
	StatusUnresolvedOps          Status = 7
)

// OK reports whether s is kTfLiteOk.
func (s Status) OK() bool { return s == StatusOK }

// Err reports whether s is any failure status.
func (s Status) Err() bool { return s != StatusOK }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusDelegateError:
		return "delegate error"
	case StatusApplicationError:
		return "application error"
	case StatusDelegateDataNotFound:
		return "delegate data not found"
	case StatusDelegateDataWriteError:
		return "delegate data write error"
	case StatusDelegateDataReadError:
		return "delegate data read error"
	case StatusUnresolvedOps:
		return "unresolved ops"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Type mirrors TfLiteType.
type Type int

const (
	TypeNoType     Type = 0
	TypeFloat32    Type = 1
	TypeInt32      Type = 2
	TypeUInt8      Type = 3
	TypeInt64      Type = 4
	TypeString     Type = 5
	TypeBool       Type = 6
	TypeInt16      Type = 7
	TypeComplex64  Type = 8
	TypeInt8       Type = 9
	TypeFloat16    Type = 10
	TypeFloat64    Type = 11
	TypeComplex128 Type = 12
	TypeUInt64     Type = 13
	TypeResource   Type = 14
	TypeVariant    Type = 15
	TypeUInt32     Type = 16
	TypeUInt16     Type = 17
	TypeInt4       Type = 18
	TypeBFloat16   Type = 19
)

var typeNames = map[Type]string{
	TypeNoType:     "notype",
	TypeFloat32:    "float32",
	TypeInt32:      "int32",
	TypeUInt8:      "uint8",
	TypeInt64:      "int64",
	TypeString:     "string",
	TypeBool:       "bool",
	TypeInt16:      "int16",
	TypeComplex64:  "complex64",
	TypeInt8:       "int8",
	TypeFloat16:    "float16",
	TypeFloat64:    "float64",
	TypeComplex128: "complex128",
	TypeUInt64:     "uint64",
	TypeResource:   "resource",
	TypeVariant:    "variant",
	TypeUInt32:     "uint32",
	TypeUInt16:     "uint16",
	TypeInt4:       "int4",
	TypeBFloat16:   "bfloat16",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// XNNPackFlags mirrors the TFLITE_XNNPACK_DELEGATE_FLAG_* bits from
// tensorflow/lite/delegates/xnnpack/xnnpack_delegate.h.
type XNNPackFlags uint32

const (
	// XNNPackFlagQS8 enables signed quantized 8-bit inference.
	XNNPackFlagQS8 XNNPackFlags = 0x00000001
	// XNNPackFlagQU8 enables unsigned quantized 8-bit inference.
	XNNPackFlagQU8 XNNPackFlags = 0x00000002
	// XNNPackFlagForceFP16 forces FP16 inference for FP32 operators.
	XNNPackFlagForceFP16                  XNNPackFlags = 0x00000004
	XNNPackFlagDynamicFullyConnected      XNNPackFlags = 0x00000008
	XNNPackFlagVariableOperators          XNNPackFlags = 0x00000010
	XNNPackFlagTransientIndirectionBuffer XNNPackFlags = 0x00000020
	XNNPackFlagEnableLatestOperators      XNNPackFlags = 0x00000040
	XNNPackFlagEnableSubgraphReshaping    XNNPackFlags = 0x00000080
)

var xnnpackFlagNames = []struct {
	flag XNNPackFlags
	name string
}{
	{XNNPackFlagQS8, "qs8"},
	{XNNPackFlagQU8, "qu8"},
	{XNNPackFlagForceFP16, "force_fp16"},
	{XNNPackFlagDynamicFullyConnected, "dynamic_fully_connected"},
	{XNNPackFlagVariableOperators, "variable_operators"},
	{XNNPackFlagTransientIndirectionBuffer, "transient_indirection_buffer"},
	{XNNPackFlagEnableLatestOperators, "enable_latest_operators"},
	{XNNPackFlagEnableSubgraphReshaping, "enable_subgraph_reshaping"},
}

// Names lists the names of the set bits in declaration order.
func (f XNNPackFlags) Names() []string {
	var names []string
	for _, fn := range xnnpackFlagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// ParseXNNPackFlag maps a flag name as returned by Names back to its bit.
func ParseXNNPackFlag(name string) (XNNPackFlags, error) {
	for _, fn := range xnnpackFlagNames {
		if fn.name == name {
			return fn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown xnnpack flag %q", name)
}

// XNNPackOptions is the Go side of TfLiteXNNPackDelegateOptions.
type XNNPackOptions struct {
	NumThreads int
	Flags      XNNPackFlags
	// WeightsCache is a TfLiteXNNPackDelegateWeightsCache* or nil.
	WeightsCache        unsafe.Pointer
	HandleVariableOps   bool
	WeightCacheFilePath string
}

// DefaultXNNPackOptions returns single-threaded execution with signed and
// unsigned quantized 8-bit acceleration enabled.
func DefaultXNNPackOptions() XNNPackOptions {
	return XNNPackOptions{
		NumThreads: 1,
		Flags:      XNNPackFlagQS8 | XNNPackFlagQU8,
	}
}
