// Package backend is the seam between the safe tflite API and whatever
// executes models. Native forwards to the C library through internal/capi.
// Constructors return a nil interface where the C API returns NULL.
package backend

import (
	"sync/atomic"
	"unsafe"

	"github.com/samcharles93/tflite/internal/capi"
)

type Engine interface {
	Available() bool
	ModelFromFile(path string) Model
	ModelFromBytes(data []byte) Model
	ModelFromBuffer(data unsafe.Pointer, size int) Model
	NewInterpreter(m Model, numThreads int, d Delegate) Interpreter
	NewXNNPackDelegate(opts capi.XNNPackOptions) Delegate
}

type Model interface {
	Delete()
}

type Delegate interface {
	Delete()
}

type Interpreter interface {
	AllocateTensors() capi.Status
	Invoke() capi.Status
	ResizeInputTensor(index int, dims []int32) capi.Status
	InputTensorCount() int
	OutputTensorCount() int
	InputTensor(index int) Tensor
	OutputTensor(index int) Tensor
	Delete()
}

type Tensor interface {
	Type() capi.Type
	NumDims() int
	Dim(index int) int
	ByteSize() int
	Data() unsafe.Pointer
	Name() (string, bool)
	QuantizationParams() (float32, int32)
	CopyFromBuffer(src unsafe.Pointer, size int) capi.Status
	CopyToBuffer(dst unsafe.Pointer, size int) capi.Status
}

type box struct{ Engine }

var current atomic.Pointer[box]

func init() {
	current.Store(&box{Native{}})
}

// Default is the engine new models and delegates are created with.
func Default() Engine {
	return current.Load().Engine
}

// Use makes e the default engine and returns a function restoring the
// previous one. Models already loaded keep the engine they were created with.
func Use(e Engine) (restore func()) {
	prev := current.Swap(&box{e})
	return func() { current.Store(prev) }
}
