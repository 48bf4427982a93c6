package tflite

import (
	"errors"
	"fmt"
	"math"
)

// Logger receives lifecycle events. internal/logger.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// InterpreterOptions configures NewInterpreter. The zero value is valid.
type InterpreterOptions struct {
	// NumThreads is passed to the engine when non-zero; -1 lets the engine
	// decide.
	NumThreads int
	// Delegate is attached to the interpreter and released with it.
	Delegate *Delegate
	Logger   Logger
}

// Interpreter executes a Model. Tensors must be allocated before tensor data
// is accessed or Invoke is called, and again after any ResizeInput.
//
// An Interpreter is not safe for concurrent use.
//
// Tensor views returned by Input and Output borrow engine memory. They are
// invalidated by AllocateTensors, ResizeInput, Invoke and Close; accessing the
// data of an invalidated view panics. Fetch a fresh view instead.
type Interpreter struct {
	handle   interpreterHandle
	model    *Model
	delegate *Delegate
	log      Logger
	// gen is bumped whenever engine buffers may move.
	gen    uint64
	closed bool
}

// NewInterpreter builds an interpreter for model. The model and the
// delegate, if any, stay alive until the interpreter is closed.
func NewInterpreter(model *Model, opts *InterpreterOptions) (*Interpreter, error) {
	const op = "create interpreter"
	if opts == nil {
		opts = &InterpreterOptions{}
	}
	if model == nil {
		return nil, &Error{Op: op, Kind: ErrInterpreterCreate, Err: errors.New("nil model")}
	}
	if opts.NumThreads < -1 {
		return nil, &Error{Op: op, Kind: ErrInterpreterCreate, Err: fmt.Errorf("invalid thread count %d", opts.NumThreads)}
	}
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	if !model.life.acquire() {
		return nil, &Error{Op: op, Kind: ErrInterpreterCreate, Err: ErrClosed}
	}

	var dh delegateHandle
	if opts.Delegate != nil {
		if err := opts.Delegate.attach(); err != nil {
			_ = model.life.release()
			return nil, &Error{Op: op, Kind: ErrInterpreterCreate, Err: err}
		}
		dh = opts.Delegate.handle
	}

	h := model.eng.NewInterpreter(model.handle, opts.NumThreads, dh)
	if h == nil {
		var errs []error
		if opts.Delegate != nil {
			errs = append(errs, opts.Delegate.detach())
		}
		errs = append(errs, model.life.release())
		if cause := engineCause(model.eng); cause != nil {
			errs = append(errs, cause)
		}
		return nil, &Error{Op: op, Kind: ErrInterpreterCreate, Err: errors.Join(errs...)}
	}

	in := &Interpreter{
		handle:   h,
		model:    model,
		delegate: opts.Delegate,
		log:      log,
	}
	log.Debug("interpreter created",
		"model", model.source,
		"threads", opts.NumThreads,
		"delegate", opts.Delegate != nil,
		"inputs", h.InputTensorCount(),
		"outputs", h.OutputTensorCount(),
	)
	return in, nil
}

// Model returns the model the interpreter was built from.
func (in *Interpreter) Model() *Model { return in.model }

// AllocateTensors (re)allocates every tensor buffer. It is safe to call
// repeatedly and required after ResizeInput.
func (in *Interpreter) AllocateTensors() error {
	const op = "allocate tensors"
	if in.closed {
		return &Error{Op: op, Kind: ErrAllocateTensors, Err: ErrClosed}
	}
	in.invalidate()
	if st := in.handle.AllocateTensors(); st.Err() {
		in.log.Warn("allocate tensors failed", "model", in.model.source, "status", st)
		return statusError(op, ErrAllocateTensors, st)
	}
	in.log.Debug("tensors allocated", "generation", in.gen)
	return nil
}

// ResizeInput changes the shape of input tensor index. AllocateTensors must
// succeed before the tensor is accessed again.
func (in *Interpreter) ResizeInput(index int, dims []int) error {
	const op = "resize input"
	if in.closed {
		return &Error{Op: op, Kind: ErrResizeTensor, Err: ErrClosed}
	}
	if count := in.handle.InputTensorCount(); index < 0 || index >= count {
		return &IndexError{Op: op, Index: index, Count: count}
	}
	native := make([]int32, len(dims))
	for i, d := range dims {
		if d < 0 || d > math.MaxInt32 {
			return &Error{Op: op, Kind: ErrResizeTensor, Err: fmt.Errorf("dimension %d out of range: %d", i, d)}
		}
		native[i] = int32(d)
	}
	in.invalidate()
	if st := in.handle.ResizeInputTensor(index, native); st.Err() {
		return statusError(op, ErrResizeTensor, st)
	}
	in.log.Debug("input resized", "index", index, "dims", dims)
	return nil
}

// Invoke runs the model. It blocks until the engine returns and cannot be
// cancelled.
func (in *Interpreter) Invoke() error {
	const op = "invoke"
	if in.closed {
		return &Error{Op: op, Kind: ErrInvoke, Err: ErrClosed}
	}
	in.invalidate()
	if st := in.handle.Invoke(); st.Err() {
		in.log.Warn("invoke failed", "model", in.model.source, "status", st)
		return statusError(op, ErrInvoke, st)
	}
	return nil
}

// InputCount returns the number of input tensors, 0 once closed.
func (in *Interpreter) InputCount() int {
	if in.closed {
		return 0
	}
	return in.handle.InputTensorCount()
}

// OutputCount returns the number of output tensors, 0 once closed.
func (in *Interpreter) OutputCount() int {
	if in.closed {
		return 0
	}
	return in.handle.OutputTensorCount()
}

// Input returns a view of input tensor index.
func (in *Interpreter) Input(index int) (*Tensor, error) {
	const op = "input tensor"
	if in.closed {
		return nil, &Error{Op: op, Kind: ErrReadTensor, Err: ErrClosed}
	}
	if count := in.handle.InputTensorCount(); index < 0 || index >= count {
		return nil, &IndexError{Op: op, Index: index, Count: count}
	}
	return newTensor(in.handle.InputTensor(index), in)
}

// Output returns a view of output tensor index.
func (in *Interpreter) Output(index int) (*Tensor, error) {
	const op = "output tensor"
	if in.closed {
		return nil, &Error{Op: op, Kind: ErrReadTensor, Err: ErrClosed}
	}
	if count := in.handle.OutputTensorCount(); index < 0 || index >= count {
		return nil, &IndexError{Op: op, Index: index, Count: count}
	}
	return newTensor(in.handle.OutputTensor(index), in)
}

// Inputs returns views of every input tensor.
func (in *Interpreter) Inputs() ([]*Tensor, error) {
	if in.closed {
		return nil, &Error{Op: "input tensors", Kind: ErrReadTensor, Err: ErrClosed}
	}
	out := make([]*Tensor, in.InputCount())
	for i := range out {
		t, err := in.Input(i)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Outputs returns views of every output tensor.
func (in *Interpreter) Outputs() ([]*Tensor, error) {
	if in.closed {
		return nil, &Error{Op: "output tensors", Kind: ErrReadTensor, Err: ErrClosed}
	}
	out := make([]*Tensor, in.OutputCount())
	for i := range out {
		t, err := in.Output(i)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Close destroys the interpreter, then releases its delegate and model.
// Close is idempotent.
func (in *Interpreter) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	in.invalidate()
	in.handle.Delete()
	in.handle = nil

	var errs []error
	if in.delegate != nil {
		errs = append(errs, in.delegate.life.release())
	}
	errs = append(errs, in.model.life.release())
	in.log.Debug("interpreter closed", "model", in.model.source)
	return errors.Join(errs...)
}

func (in *Interpreter) invalidate() {
	in.gen++
}
