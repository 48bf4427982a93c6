//go:build tflite

package capi

/*
#cgo LDFLAGS: -ltensorflowlite_c
#cgo linux LDFLAGS: -lm -ldl

#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

// Forward declarations of the TensorFlow Lite C API so the headers are not
// needed at compile time. The linker still requires libtensorflowlite_c.
typedef struct TfLiteModel TfLiteModel;
typedef struct TfLiteInterpreterOptions TfLiteInterpreterOptions;
typedef struct TfLiteInterpreter TfLiteInterpreter;
typedef struct TfLiteTensor TfLiteTensor;
typedef struct TfLiteDelegate TfLiteDelegate;

typedef int TfLiteStatus;
typedef int TfLiteType;

typedef struct {
	float scale;
	int32_t zero_point;
} TfLiteQuantizationParams;

// Layout of the targeted library version. A library with a larger struct
// needs this declaration updated.
typedef struct {
	int32_t num_threads;
	uint32_t flags;
	void* weights_cache;
	bool handle_variable_ops;
	const char* weight_cache_file_path;
} TfLiteXNNPackDelegateOptions;

extern const char* TfLiteVersion(void);

extern TfLiteModel* TfLiteModelCreate(const void* model_data, size_t model_size);
extern TfLiteModel* TfLiteModelCreateFromFile(const char* model_path);
extern void TfLiteModelDelete(TfLiteModel* model);

extern TfLiteInterpreterOptions* TfLiteInterpreterOptionsCreate(void);
extern void TfLiteInterpreterOptionsDelete(TfLiteInterpreterOptions* options);
extern void TfLiteInterpreterOptionsSetNumThreads(TfLiteInterpreterOptions* options, int32_t num_threads);
extern void TfLiteInterpreterOptionsAddDelegate(TfLiteInterpreterOptions* options, TfLiteDelegate* delegate);

extern TfLiteInterpreter* TfLiteInterpreterCreate(const TfLiteModel* model, const TfLiteInterpreterOptions* optional_options);
extern void TfLiteInterpreterDelete(TfLiteInterpreter* interpreter);
extern int32_t TfLiteInterpreterGetInputTensorCount(const TfLiteInterpreter* interpreter);
extern TfLiteTensor* TfLiteInterpreterGetInputTensor(const TfLiteInterpreter* interpreter, int32_t input_index);
extern TfLiteStatus TfLiteInterpreterResizeInputTensor(TfLiteInterpreter* interpreter, int32_t input_index, const int* input_dims, int32_t input_dims_size);
extern TfLiteStatus TfLiteInterpreterAllocateTensors(TfLiteInterpreter* interpreter);
extern TfLiteStatus TfLiteInterpreterInvoke(TfLiteInterpreter* interpreter);
extern int32_t TfLiteInterpreterGetOutputTensorCount(const TfLiteInterpreter* interpreter);
extern const TfLiteTensor* TfLiteInterpreterGetOutputTensor(const TfLiteInterpreter* interpreter, int32_t output_index);

extern TfLiteType TfLiteTensorType(const TfLiteTensor* tensor);
extern int32_t TfLiteTensorNumDims(const TfLiteTensor* tensor);
extern int32_t TfLiteTensorDim(const TfLiteTensor* tensor, int32_t dim_index);
extern size_t TfLiteTensorByteSize(const TfLiteTensor* tensor);
extern void* TfLiteTensorData(const TfLiteTensor* tensor);
extern const char* TfLiteTensorName(const TfLiteTensor* tensor);
extern TfLiteQuantizationParams TfLiteTensorQuantizationParams(const TfLiteTensor* tensor);
extern TfLiteStatus TfLiteTensorCopyFromBuffer(TfLiteTensor* tensor, const void* input_data, size_t input_data_size);
extern TfLiteStatus TfLiteTensorCopyToBuffer(const TfLiteTensor* output_tensor, void* output_data, size_t output_data_size);

extern TfLiteXNNPackDelegateOptions TfLiteXNNPackDelegateOptionsDefault(void);
extern TfLiteDelegate* TfLiteXNNPackDelegateCreate(const TfLiteXNNPackDelegateOptions* options);
extern void TfLiteXNNPackDelegateDelete(TfLiteDelegate* delegate);

static void tfliteGoTensorQuantization(const TfLiteTensor* tensor, float* scale, int32_t* zero_point) {
	TfLiteQuantizationParams params = TfLiteTensorQuantizationParams(tensor);
	*scale = params.scale;
	*zero_point = params.zero_point;
}

static TfLiteDelegate* tfliteGoXNNPackCreate(int32_t num_threads, uint32_t flags, void* weights_cache, bool handle_variable_ops, const char* weight_cache_file_path) {
	TfLiteXNNPackDelegateOptions opts = TfLiteXNNPackDelegateOptionsDefault();
	opts.num_threads = num_threads;
	opts.flags = flags;
	opts.weights_cache = weights_cache;
	opts.handle_variable_ops = handle_variable_ops;
	opts.weight_cache_file_path = weight_cache_file_path;
	return TfLiteXNNPackDelegateCreate(&opts);
}

static void tfliteGoXNNPackDefaults(int32_t* num_threads, uint32_t* flags, bool* handle_variable_ops) {
	TfLiteXNNPackDelegateOptions opts = TfLiteXNNPackDelegateOptionsDefault();
	*num_threads = opts.num_threads;
	*flags = opts.flags;
	*handle_variable_ops = opts.handle_variable_ops;
}
*/
import "C"

import "unsafe"

// Model wraps a TfLiteModel*.
type Model struct {
	ptr *C.TfLiteModel
	// buf is the C copy of the flatbuffer for models created from bytes.
	buf unsafe.Pointer
}

// InterpreterOptions wraps a TfLiteInterpreterOptions*.
type InterpreterOptions struct {
	ptr *C.TfLiteInterpreterOptions
}

// Interpreter wraps a TfLiteInterpreter*.
type Interpreter struct {
	ptr *C.TfLiteInterpreter
}

// Tensor wraps a TfLiteTensor* owned by an interpreter.
type Tensor struct {
	ptr *C.TfLiteTensor
}

// Delegate wraps a TfLiteDelegate* created by the XNNPACK factory.
type Delegate struct {
	ptr       *C.TfLiteDelegate
	cachePath *C.char
}

// Available reports whether the native library is linked into this build.
func Available() bool { return true }

// Version returns TfLiteVersion().
func Version() string {
	return C.GoString(C.TfLiteVersion())
}

// EngineXNNPackDefaults reports the defaults compiled into the linked library,
// which may differ from DefaultXNNPackOptions.
func EngineXNNPackDefaults() XNNPackOptions {
	var (
		threads C.int32_t
		flags   C.uint32_t
		varOps  C.bool
	)
	C.tfliteGoXNNPackDefaults(&threads, &flags, &varOps)
	return XNNPackOptions{
		NumThreads:        int(threads),
		Flags:             XNNPackFlags(flags),
		HandleVariableOps: bool(varOps),
	}
}

// NewModelFromFile calls TfLiteModelCreateFromFile. It returns nil on failure.
func NewModelFromFile(path string) *Model {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	ptr := C.TfLiteModelCreateFromFile(cPath)
	if ptr == nil {
		return nil
	}
	return &Model{ptr: ptr}
}

// NewModelFromBytes copies data into C memory and calls TfLiteModelCreate.
// The engine keeps referencing the buffer, so the copy lives until Delete.
func NewModelFromBytes(data []byte) *Model {
	if len(data) == 0 {
		return nil
	}
	buf := C.CBytes(data)
	ptr := C.TfLiteModelCreate(buf, C.size_t(len(data)))
	if ptr == nil {
		C.free(buf)
		return nil
	}
	return &Model{ptr: ptr, buf: buf}
}

// NewModelFromBuffer calls TfLiteModelCreate without copying. data must not
// point into Go-managed memory and must stay valid until Delete returns.
func NewModelFromBuffer(data unsafe.Pointer, size int) *Model {
	if data == nil || size <= 0 {
		return nil
	}
	ptr := C.TfLiteModelCreate(data, C.size_t(size))
	if ptr == nil {
		return nil
	}
	return &Model{ptr: ptr}
}

// Delete calls TfLiteModelDelete and frees the owned buffer, once.
func (m *Model) Delete() {
	if m == nil || m.ptr == nil {
		return
	}
	C.TfLiteModelDelete(m.ptr)
	m.ptr = nil
	if m.buf != nil {
		C.free(m.buf)
		m.buf = nil
	}
}

// NewInterpreterOptions calls TfLiteInterpreterOptionsCreate.
func NewInterpreterOptions() *InterpreterOptions {
	ptr := C.TfLiteInterpreterOptionsCreate()
	if ptr == nil {
		return nil
	}
	return &InterpreterOptions{ptr: ptr}
}

func (o *InterpreterOptions) SetNumThreads(n int) {
	C.TfLiteInterpreterOptionsSetNumThreads(o.ptr, C.int32_t(n))
}

// AddDelegate attaches d. The delegate must outlive every interpreter
// created from these options.
func (o *InterpreterOptions) AddDelegate(d *Delegate) {
	C.TfLiteInterpreterOptionsAddDelegate(o.ptr, d.ptr)
}

func (o *InterpreterOptions) Delete() {
	if o == nil || o.ptr == nil {
		return
	}
	C.TfLiteInterpreterOptionsDelete(o.ptr)
	o.ptr = nil
}

// NewInterpreter calls TfLiteInterpreterCreate. opts may be nil. The model
// must outlive the interpreter.
func NewInterpreter(m *Model, opts *InterpreterOptions) *Interpreter {
	if m == nil || m.ptr == nil {
		return nil
	}
	var o *C.TfLiteInterpreterOptions
	if opts != nil {
		o = opts.ptr
	}
	ptr := C.TfLiteInterpreterCreate(m.ptr, o)
	if ptr == nil {
		return nil
	}
	return &Interpreter{ptr: ptr}
}

func (i *Interpreter) Delete() {
	if i == nil || i.ptr == nil {
		return
	}
	C.TfLiteInterpreterDelete(i.ptr)
	i.ptr = nil
}

func (i *Interpreter) AllocateTensors() Status {
	return Status(C.TfLiteInterpreterAllocateTensors(i.ptr))
}

func (i *Interpreter) Invoke() Status {
	return Status(C.TfLiteInterpreterInvoke(i.ptr))
}

func (i *Interpreter) InputTensorCount() int {
	return int(C.TfLiteInterpreterGetInputTensorCount(i.ptr))
}

func (i *Interpreter) OutputTensorCount() int {
	return int(C.TfLiteInterpreterGetOutputTensorCount(i.ptr))
}

// InputTensor returns nil if the engine returns NULL.
func (i *Interpreter) InputTensor(index int) *Tensor {
	ptr := C.TfLiteInterpreterGetInputTensor(i.ptr, C.int32_t(index))
	if ptr == nil {
		return nil
	}
	return &Tensor{ptr: ptr}
}

// OutputTensor returns nil if the engine returns NULL.
func (i *Interpreter) OutputTensor(index int) *Tensor {
	ptr := C.TfLiteInterpreterGetOutputTensor(i.ptr, C.int32_t(index))
	if ptr == nil {
		return nil
	}
	return &Tensor{ptr: ptr}
}

func (i *Interpreter) ResizeInputTensor(index int, dims []int32) Status {
	var p *C.int
	if len(dims) > 0 {
		cdims := make([]C.int, len(dims))
		for k, d := range dims {
			cdims[k] = C.int(d)
		}
		p = &cdims[0]
	}
	return Status(C.TfLiteInterpreterResizeInputTensor(i.ptr, C.int32_t(index), p, C.int32_t(len(dims))))
}

func (t *Tensor) Type() Type {
	return Type(C.TfLiteTensorType(t.ptr))
}

func (t *Tensor) NumDims() int {
	return int(C.TfLiteTensorNumDims(t.ptr))
}

func (t *Tensor) Dim(index int) int {
	return int(C.TfLiteTensorDim(t.ptr, C.int32_t(index)))
}

func (t *Tensor) ByteSize() int {
	return int(C.TfLiteTensorByteSize(t.ptr))
}

// Data returns the engine-owned buffer; nil before tensors are allocated.
func (t *Tensor) Data() unsafe.Pointer {
	return C.TfLiteTensorData(t.ptr)
}

// Name reports false if the engine returned a NULL name.
func (t *Tensor) Name() (string, bool) {
	name := C.TfLiteTensorName(t.ptr)
	if name == nil {
		return "", false
	}
	return C.GoString(name), true
}

func (t *Tensor) QuantizationParams() (float32, int32) {
	var (
		scale C.float
		zero  C.int32_t
	)
	C.tfliteGoTensorQuantization(t.ptr, &scale, &zero)
	return float32(scale), int32(zero)
}

func (t *Tensor) CopyFromBuffer(src unsafe.Pointer, size int) Status {
	return Status(C.TfLiteTensorCopyFromBuffer(t.ptr, src, C.size_t(size)))
}

func (t *Tensor) CopyToBuffer(dst unsafe.Pointer, size int) Status {
	return Status(C.TfLiteTensorCopyToBuffer(t.ptr, dst, C.size_t(size)))
}

// NewXNNPackDelegate starts from TfLiteXNNPackDelegateOptionsDefault and
// applies opts. It returns nil on failure.
func NewXNNPackDelegate(opts XNNPackOptions) *Delegate {
	var cachePath *C.char
	if opts.WeightCacheFilePath != "" {
		cachePath = C.CString(opts.WeightCacheFilePath)
	}
	ptr := C.tfliteGoXNNPackCreate(
		C.int32_t(opts.NumThreads),
		C.uint32_t(opts.Flags),
		opts.WeightsCache,
		C.bool(opts.HandleVariableOps),
		cachePath,
	)
	if ptr == nil {
		if cachePath != nil {
			C.free(unsafe.Pointer(cachePath))
		}
		return nil
	}
	return &Delegate{ptr: ptr, cachePath: cachePath}
}

func (d *Delegate) Delete() {
	if d == nil || d.ptr == nil {
		return
	}
	C.TfLiteXNNPackDelegateDelete(d.ptr)
	d.ptr = nil
	if d.cachePath != nil {
		C.free(unsafe.Pointer(d.cachePath))
		d.cachePath = nil
	}
}
