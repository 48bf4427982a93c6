//go:build !tflite

package capi

import "unsafe"

// Builds without the tflite tag keep the same API so the safety layer, the
// runner and the CLI compile everywhere. Every constructor reports failure.

type Model struct{}

type InterpreterOptions struct{}

type Interpreter struct{}

type Tensor struct{}

type Delegate struct{}

func Available() bool { return false }

func Version() string { return "" }

func EngineXNNPackDefaults() XNNPackOptions { return DefaultXNNPackOptions() }

func NewModelFromFile(string) *Model { return nil }

func NewModelFromBytes([]byte) *Model { return nil }

func NewModelFromBuffer(unsafe.Pointer, int) *Model { return nil }

func (m *Model) Delete() {}

func NewInterpreterOptions() *InterpreterOptions { return nil }

func (o *InterpreterOptions) SetNumThreads(int) {}

func (o *InterpreterOptions) AddDelegate(*Delegate) {}

func (o *InterpreterOptions) Delete() {}

func NewInterpreter(*Model, *InterpreterOptions) *Interpreter { return nil }

func (i *Interpreter) Delete() {}

func (i *Interpreter) AllocateTensors() Status { return StatusError }

func (i *Interpreter) Invoke() Status { return StatusError }

func (i *Interpreter) InputTensorCount() int { return 0 }

func (i *Interpreter) OutputTensorCount() int { return 0 }

func (i *Interpreter) InputTensor(int) *Tensor { return nil }

func (i *Interpreter) OutputTensor(int) *Tensor { return nil }

func (i *Interpreter) ResizeInputTensor(int, []int32) Status { return StatusError }

func (t *Tensor) Type() Type { return TypeNoType }

func (t *Tensor) NumDims() int { return 0 }

func (t *Tensor) Dim(int) int { return 0 }

func (t *Tensor) ByteSize() int { return 0 }

func (t *Tensor) Data() unsafe.Pointer { return nil }

func (t *Tensor) Name() (string, bool) { return "", false }

func (t *Tensor) QuantizationParams() (float32, int32) { return 0, 0 }

func (t *Tensor) CopyFromBuffer(unsafe.Pointer, int) Status { return StatusError }

func (t *Tensor) CopyToBuffer(unsafe.Pointer, int) Status { return StatusError }

func NewXNNPackDelegate(XNNPackOptions) *Delegate { return nil }

func (d *Delegate) Delete() {}
