package tflite

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrModelLoad              = errors.New("tflite: failed to load model")
	ErrInterpreterCreate      = errors.New("tflite: failed to create interpreter")
	ErrAllocateTensors        = errors.New("tflite: failed to allocate tensors")
	ErrResizeTensor           = errors.New("tflite: failed to resize input tensor")
	ErrInvoke                 = errors.New("tflite: failed to invoke interpreter")
	ErrInvalidIndex           = errors.New("tflite: invalid tensor index")
	ErrReadTensor             = errors.New("tflite: failed to read tensor")
	ErrInvalidTensorDataType  = errors.New("tflite: unsupported tensor data type")
	ErrInvalidTensorDataCount = errors.New("tflite: tensor data count mismatch")
	ErrCopyToInputTensor      = errors.New("tflite: failed to copy data to input tensor")
	ErrDelegateCreate         = errors.New("tflite: failed to create delegate")
	ErrDelegateInUse          = errors.New("tflite: delegate already attached to an interpreter")
	ErrClosed                 = errors.New("tflite: use of closed resource")
)

// Error describes a failed operation. Status is the native status for
// failures reported by the engine and StatusOK otherwise.
type Error struct {
	Op     string
	Kind   error
	Status Status
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != StatusOK {
		msg += " (status: " + e.Status.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func statusError(op string, kind error, st Status) error {
	return &Error{Op: op, Kind: kind, Status: st}
}

// IndexError reports an input or output index outside [0, Count).
type IndexError struct {
	Op    string
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %v: index %d out of range [0, %d)", e.Op, ErrInvalidIndex, e.Index, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrInvalidIndex }

// DataCountError reports a SetData call whose byte length differs from the
// tensor buffer.
type DataCountError struct {
	// Elements is the number of elements supplied.
	Elements int
	// Bytes is Elements times the element size.
	Bytes int
	// Want is the tensor byte size.
	Want int
}

func (e *DataCountError) Error() string {
	return fmt.Sprintf("%v: got %d elements (%d bytes), tensor holds %d bytes", ErrInvalidTensorDataCount, e.Elements, e.Bytes, e.Want)
}

func (e *DataCountError) Unwrap() error { return ErrInvalidTensorDataCount }
