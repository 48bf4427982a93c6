// Package backendtest provides an in-memory backend.Engine for tests. Tensors
// are backed by Go memory that moves on every AllocateTensors, the way an
// engine arena may, and every native call is counted.
package backendtest

import (
	"slices"
	"sync"
	"unsafe"

	"github.com/samcharles93/tflite/internal/backend"
	"github.com/samcharles93/tflite/internal/capi"
)

// TensorSpec describes one tensor of the fake model.
type TensorSpec struct {
	Name      string
	Type      capi.Type
	Dims      []int
	Scale     float32
	ZeroPoint int32
	// NoName makes the tensor report a NULL name.
	NoName bool
	// Missing makes the interpreter return a NULL tensor.
	Missing bool
	// ByteSize overrides the size computed from Type and Dims when > 0.
	ByteSize int
}

// Engine builds fake models, interpreters and delegates. Set the exported
// fields before use; the recorded slices are safe to read once the code
// under test has returned.
type Engine struct {
	Unavailable     bool
	FailModel       bool
	FailInterpreter bool
	FailDelegate    bool

	Inputs  []TensorSpec
	Outputs []TensorSpec
	// Invoke computes outputs from inputs. nil leaves outputs untouched.
	Invoke func(in *Interpreter) capi.Status

	mu           sync.Mutex
	models       []*Model
	interpreters []*Interpreter
	delegates    []*Delegate
	events       []string
}

var _ backend.Engine = (*Engine)(nil)

func (e *Engine) record(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

// Events lists Delete calls in order, e.g. "interpreter.delete".
func (e *Engine) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.events)
}

func (e *Engine) Models() []*Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.models)
}

func (e *Engine) Interpreters() []*Interpreter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.interpreters)
}

func (e *Engine) Delegates() []*Delegate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.delegates)
}

func (e *Engine) Available() bool { return !e.Unavailable }

func (e *Engine) newModel(data []byte) backend.Model {
	if e.FailModel {
		return nil
	}
	m := &Model{e: e, Data: data}
	e.mu.Lock()
	e.models = append(e.models, m)
	e.mu.Unlock()
	return m
}

func (e *Engine) ModelFromFile(string) backend.Model { return e.newModel(nil) }

func (e *Engine) ModelFromBytes(data []byte) backend.Model {
	return e.newModel(slices.Clone(data))
}

func (e *Engine) ModelFromBuffer(data unsafe.Pointer, size int) backend.Model {
	return e.newModel(slices.Clone(unsafe.Slice((*byte)(data), size)))
}

func (e *Engine) NewInterpreter(m backend.Model, numThreads int, d backend.Delegate) backend.Interpreter {
	if e.FailInterpreter {
		return nil
	}
	in := &Interpreter{e: e, Model: m.(*Model), Threads: numThreads}
	if d != nil {
		in.Delegate = d.(*Delegate)
	}
	for _, spec := range e.Inputs {
		in.Inputs = append(in.Inputs, newTensor(spec))
	}
	for _, spec := range e.Outputs {
		in.Outputs = append(in.Outputs, newTensor(spec))
	}
	e.mu.Lock()
	e.interpreters = append(e.interpreters, in)
	e.mu.Unlock()
	return in
}

func (e *Engine) NewXNNPackDelegate(opts capi.XNNPackOptions) backend.Delegate {
	if e.FailDelegate {
		return nil
	}
	d := &Delegate{e: e, Options: opts}
	e.mu.Lock()
	e.delegates = append(e.delegates, d)
	e.mu.Unlock()
	return d
}

type Model struct {
	e       *Engine
	Data    []byte
	Deleted int
}

func (m *Model) Delete() {
	m.Deleted++
	m.e.record("model.delete")
}

type Delegate struct {
	e       *Engine
	Options capi.XNNPackOptions
	Deleted int
}

func (d *Delegate) Delete() {
	d.Deleted++
	d.e.record("delegate.delete")
}

// Interpreter is not safe for concurrent use, like the real one.
type Interpreter struct {
	e        *Engine
	Model    *Model
	Delegate *Delegate
	Threads  int

	Inputs  []*Tensor
	Outputs []*Tensor

	// Non-OK statuses make the matching call fail until reset.
	AllocateStatus capi.Status
	InvokeStatus   capi.Status
	ResizeStatus   capi.Status

	Allocations int
	Invokes     int
	Resizes     int
	Deleted     int
	// TensorCalls records the index of every InputTensor/OutputTensor call.
	TensorCalls []int

	allocated bool
}

func (in *Interpreter) AllocateTensors() capi.Status {
	if in.AllocateStatus.Err() {
		return in.AllocateStatus
	}
	for _, t := range in.Inputs {
		t.allocate()
	}
	for _, t := range in.Outputs {
		t.allocate()
	}
	in.Allocations++
	in.allocated = true
	return capi.StatusOK
}

func (in *Interpreter) Invoke() capi.Status {
	in.Invokes++
	if in.InvokeStatus.Err() {
		return in.InvokeStatus
	}
	if !in.allocated {
		return capi.StatusError
	}
	if in.e.Invoke != nil {
		return in.e.Invoke(in)
	}
	return capi.StatusOK
}

// ResizeInputTensor changes the dims and drops the buffer until the next
// AllocateTensors.
func (in *Interpreter) ResizeInputTensor(index int, dims []int32) capi.Status {
	in.Resizes++
	if in.ResizeStatus.Err() {
		return in.ResizeStatus
	}
	t := in.Inputs[index]
	t.Dims = make([]int, len(dims))
	for i, d := range dims {
		t.Dims[i] = int(d)
	}
	t.release()
	in.allocated = false
	return capi.StatusOK
}

func (in *Interpreter) InputTensorCount() int  { return len(in.Inputs) }
func (in *Interpreter) OutputTensorCount() int { return len(in.Outputs) }

func (in *Interpreter) InputTensor(index int) backend.Tensor {
	in.TensorCalls = append(in.TensorCalls, index)
	if t := in.Inputs[index]; !t.Spec.Missing {
		return t
	}
	return nil
}

func (in *Interpreter) OutputTensor(index int) backend.Tensor {
	in.TensorCalls = append(in.TensorCalls, index)
	if t := in.Outputs[index]; !t.Spec.Missing {
		return t
	}
	return nil
}

func (in *Interpreter) Delete() {
	in.Deleted++
	in.e.record("interpreter.delete")
}

var elementSize = map[capi.Type]int{
	capi.TypeBool:    1,
	capi.TypeUInt8:   1,
	capi.TypeInt8:    1,
	capi.TypeUInt16:  2,
	capi.TypeInt16:   2,
	capi.TypeFloat16: 2,
	capi.TypeUInt32:  4,
	capi.TypeInt32:   4,
	capi.TypeFloat32: 4,
	capi.TypeUInt64:  8,
	capi.TypeInt64:   8,
	capi.TypeFloat64: 8,
	capi.TypeString:  1,
}

type Tensor struct {
	Spec TensorSpec
	Dims []int

	// Non-OK statuses make the copy calls fail.
	CopyInStatus  capi.Status
	CopyOutStatus capi.Status
	CopiesIn      int
	CopiesOut     int

	words []uint64
	buf   []byte
}

func newTensor(spec TensorSpec) *Tensor {
	return &Tensor{Spec: spec, Dims: slices.Clone(spec.Dims)}
}

func (t *Tensor) allocate() {
	n := elementSize[t.Spec.Type]
	for _, d := range t.Dims {
		n *= d
	}
	if t.Spec.ByteSize > 0 {
		n = t.Spec.ByteSize
	}
	// uint64 backing keeps every element type aligned; a fresh slice each
	// time moves the buffer.
	t.words = make([]uint64, n/8+1)
	t.buf = unsafe.Slice((*byte)(unsafe.Pointer(&t.words[0])), n)
}

func (t *Tensor) release() {
	t.words = nil
	t.buf = nil
}

func (t *Tensor) Type() capi.Type { return t.Spec.Type }
func (t *Tensor) NumDims() int    { return len(t.Dims) }
func (t *Tensor) Dim(i int) int   { return t.Dims[i] }
func (t *Tensor) ByteSize() int   { return len(t.buf) }

func (t *Tensor) Name() (string, bool) {
	if t.Spec.NoName {
		return "", false
	}
	return t.Spec.Name, true
}

func (t *Tensor) Data() unsafe.Pointer {
	if t.words == nil {
		return nil
	}
	return unsafe.Pointer(&t.words[0])
}

func (t *Tensor) QuantizationParams() (float32, int32) {
	return t.Spec.Scale, t.Spec.ZeroPoint
}

func (t *Tensor) CopyFromBuffer(src unsafe.Pointer, size int) capi.Status {
	t.CopiesIn++
	if t.CopyInStatus.Err() {
		return t.CopyInStatus
	}
	if size != len(t.buf) {
		return capi.StatusError
	}
	copy(t.buf, unsafe.Slice((*byte)(src), size))
	return capi.StatusOK
}

func (t *Tensor) CopyToBuffer(dst unsafe.Pointer, size int) capi.Status {
	t.CopiesOut++
	if t.CopyOutStatus.Err() {
		return t.CopyOutStatus
	}
	if size != len(t.buf) {
		return capi.StatusError
	}
	copy(unsafe.Slice((*byte)(dst), size), t.buf)
	return capi.StatusOK
}

// Bytes is the raw buffer, nil while unallocated.
func (t *Tensor) Bytes() []byte { return t.buf }

// Float32s views the buffer as float32 values.
func (t *Tensor) Float32s() []float32 {
	if t.words == nil {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.words[0])), len(t.buf)/4)
}

// PairSums writes out[j] = in[2j] + in[2j+1] from the first float32 input to
// the first float32 output. It fails when the input is too short.
func PairSums(in *Interpreter) capi.Status {
	src := in.Inputs[0].Float32s()
	dst := in.Outputs[0].Float32s()
	for j := range dst {
		if 2*j+1 >= len(src) {
			return capi.StatusError
		}
		dst[j] = src[2*j] + src[2*j+1]
	}
	return capi.StatusOK
}

// NewPairSums returns an engine for a float32 [1,4] -> [1,2] pair-sum model.
func NewPairSums() *Engine {
	return &Engine{
		Inputs:  []TensorSpec{{Name: "input", Type: capi.TypeFloat32, Dims: []int{1, 4}}},
		Outputs: []TensorSpec{{Name: "output", Type: capi.TypeFloat32, Dims: []int{1, 2}}},
		Invoke:  PairSums,
	}
}
