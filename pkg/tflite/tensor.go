package tflite

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/x448/float16"
)

// Tensor is a borrowed view of an input or output tensor. The metadata is a
// snapshot taken when the view was created; the data accessors read and
// write engine memory directly and panic once the owning interpreter has
// invalidated the view (see Interpreter).
type Tensor struct {
	name     string
	dataType DataType
	shape    Shape
	quant    *QuantizationParameters

	data     unsafe.Pointer
	byteSize int

	handle tensorHandle
	owner  *Interpreter
	gen    uint64
}

func newTensor(h tensorHandle, owner *Interpreter) (*Tensor, error) {
	const op = "read tensor"
	if h == nil {
		return nil, &Error{Op: op, Kind: ErrReadTensor, Err: fmt.Errorf("engine returned no tensor")}
	}
	name, ok := h.Name()
	if !ok {
		return nil, &Error{Op: op, Kind: ErrReadTensor, Err: fmt.Errorf("tensor has no name")}
	}
	data := h.Data()
	if data == nil {
		return nil, &Error{Op: op, Kind: ErrReadTensor, Err: fmt.Errorf("tensor %q has no data buffer (tensors not allocated?)", name)}
	}
	nativeType := h.Type()
	dt, ok := dataTypeFromNative(nativeType)
	if !ok {
		return nil, &Error{Op: op, Kind: ErrInvalidTensorDataType, Err: fmt.Errorf("tensor %q has type %v", name, nativeType)}
	}

	rank := h.NumDims()
	if rank < 0 {
		return nil, &Error{Op: op, Kind: ErrReadTensor, Err: fmt.Errorf("tensor %q has rank %d", name, rank)}
	}
	dims := make([]int, rank)
	for i := range dims {
		d := h.Dim(i)
		if d < 0 {
			return nil, &Error{Op: op, Kind: ErrReadTensor, Err: fmt.Errorf("tensor %q has negative dimension %d at %d", name, d, i)}
		}
		dims[i] = d
	}

	var quant *QuantizationParameters
	if dt.IsInteger() {
		if scale, zero := h.QuantizationParams(); scale != 0 {
			quant = &QuantizationParameters{Scale: scale, ZeroPoint: zero}
		}
	}

	return &Tensor{
		name:     name,
		dataType: dt,
		shape:    Shape{dims: dims},
		quant:    quant,
		data:     data,
		byteSize: h.ByteSize(),
		handle:   h,
		owner:    owner,
		gen:      owner.gen,
	}, nil
}

func (t *Tensor) Name() string { return t.name }

func (t *Tensor) DataType() DataType { return t.dataType }

func (t *Tensor) Shape() Shape { return t.shape }

// ByteSize is the size of the tensor buffer in bytes.
func (t *Tensor) ByteSize() int { return t.byteSize }

// QuantizationParameters reports the affine quantization of integer tensors.
// ok is false for float and bool tensors and when the model carries no
// quantization (scale 0).
func (t *Tensor) QuantizationParameters() (q QuantizationParameters, ok bool) {
	if t.quant == nil {
		return QuantizationParameters{}, false
	}
	return *t.quant, true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s %v %v)", t.name, t.dataType, t.shape)
}

// Valid reports whether the view may still access engine memory.
func (t *Tensor) Valid() bool {
	return !t.owner.closed && t.owner.gen == t.gen
}

func (t *Tensor) mustBeValid() {
	if !t.Valid() {
		panic(fmt.Sprintf("tflite: tensor %q used after its interpreter reallocated, resized, invoked or closed", t.name))
	}
}

// Bytes returns the raw tensor buffer without copying.
func (t *Tensor) Bytes() []byte {
	t.mustBeValid()
	return unsafe.Slice((*byte)(t.data), t.byteSize)
}

// CopyBytes copies the tensor buffer out through the engine. The result
// stays valid after the view is invalidated.
func (t *Tensor) CopyBytes() ([]byte, error) {
	t.mustBeValid()
	out := make([]byte, t.byteSize)
	if len(out) == 0 {
		return out, nil
	}
	if st := t.handle.CopyToBuffer(unsafe.Pointer(&out[0]), len(out)); st.Err() {
		return nil, statusError("copy "+t.name, ErrReadTensor, st)
	}
	return out, nil
}

// SetBytes copies raw bytes into the tensor.
func (t *Tensor) SetBytes(data []byte) error {
	return SetData(t, data)
}

// Element lists the Go types that can be reinterpreted as tensor elements.
type Element interface {
	bool | uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64 | float16.Float16 | float32 | float64
}

// elementType returns the DataType matching T. uint8 (byte) also serves as
// the raw byte view of any tensor.
func elementType[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case uint8:
		return Uint8
	case int8:
		return Int8
	case uint16:
		return Uint16
	case int16:
		return Int16
	case uint32:
		return Uint32
	case int32:
		return Int32
	case uint64:
		return Uint64
	case int64:
		return Int64
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	}
	panic("unreachable")
}

func checkElement[T Element](t *Tensor, op string) int {
	size := int(unsafe.Sizeof(*new(T)))
	et := elementType[T]()
	if et != t.dataType && et != Uint8 {
		panic(fmt.Sprintf("tflite: %s: tensor %q holds %v, not %v", op, t.name, t.dataType, et))
	}
	if t.byteSize%size != 0 {
		panic(fmt.Sprintf("tflite: %s: data length %d of tensor %q is not a multiple of element size %d", op, t.byteSize, t.name, size))
	}
	return size
}

// Data returns the tensor buffer as a []T without copying. The slice is valid
// only as long as the view.
//
// Data panics if T does not match the tensor's DataType (uint8 is accepted
// for every type as a byte view), if the buffer length is not a multiple of
// the size of T, or if the view has been invalidated.
func Data[T Element](t *Tensor) []T {
	t.mustBeValid()
	size := checkElement[T](t, "data")
	return unsafe.Slice((*T)(t.data), t.byteSize/size)
}

// SetData copies data into the tensor. It fails without touching the tensor
// if the byte length of data differs from ByteSize. It panics under the same
// type conditions as Data.
func SetData[T Element](t *Tensor, data []T) error {
	t.mustBeValid()
	size := checkElement[T](t, "set data")
	n := len(data) * size
	if n != t.byteSize {
		return &DataCountError{Elements: len(data), Bytes: n, Want: t.byteSize}
	}
	if n == 0 {
		return nil
	}
	st := t.handle.CopyFromBuffer(unsafe.Pointer(&data[0]), n)
	runtime.KeepAlive(data)
	if st.Err() {
		return statusError("set data "+t.name, ErrCopyToInputTensor, st)
	}
	return nil
}
