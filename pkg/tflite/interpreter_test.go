package tflite

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/tflite/internal/backend/backendtest"
	"github.com/samcharles93/tflite/internal/capi"
)

func TestInvokePairSums(t *testing.T) {
	t.Parallel()

	in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
	if in.InputCount() != 1 || in.OutputCount() != 1 {
		t.Fatalf("unexpected counts in=%d out=%d", in.InputCount(), in.OutputCount())
	}

	input, err := in.Input(0)
	if err != nil {
		t.Fatalf("Input(0): %v", err)
	}
	if input.Name() != "input" || input.DataType() != Float32 || !input.Shape().Equal(NewShape(1, 4)) {
		t.Fatalf("unexpected input %v", input)
	}
	if err := SetData(input, []float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := in.Invoke(); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	output, err := in.Output(0)
	if err != nil {
		t.Fatalf("Output(0): %v", err)
	}
	if diff := cmp.Diff([]float32{3, 7}, Data[float32](output)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if fake.Invokes != 1 {
		t.Fatalf("expected one invoke, got %d", fake.Invokes)
	}
}

func TestIndexOutOfRangeSkipsEngine(t *testing.T) {
	t.Parallel()

	in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
	for _, index := range []int{-1, 1, 17} {
		_, err := in.Input(index)
		var idxErr *IndexError
		if !errors.As(err, &idxErr) || !errors.Is(err, ErrInvalidIndex) {
			t.Fatalf("Input(%d): expected IndexError, got %v", index, err)
		}
		if idxErr.Index != index || idxErr.Count != 1 {
			t.Fatalf("Input(%d): unexpected error %+v", index, idxErr)
		}
		if _, err := in.Output(index); !errors.Is(err, ErrInvalidIndex) {
			t.Fatalf("Output(%d): expected ErrInvalidIndex, got %v", index, err)
		}
		if err := in.ResizeInput(index, []int{1}); !errors.Is(err, ErrInvalidIndex) {
			t.Fatalf("ResizeInput(%d): expected ErrInvalidIndex, got %v", index, err)
		}
	}
	if len(fake.TensorCalls) != 0 || fake.Resizes != 0 {
		t.Fatalf("engine reached with bad index: tensorCalls=%v resizeCalls=%d", fake.TensorCalls, fake.Resizes)
	}
}

func TestResizeThenAllocate(t *testing.T) {
	t.Parallel()

	in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
	old, _ := in.Input(0)

	if err := in.ResizeInput(0, []int{2, 4}); err != nil {
		t.Fatalf("ResizeInput: %v", err)
	}
	if old.Valid() {
		t.Fatalf("view must be invalid after ResizeInput")
	}
	// Buffers are gone until the next allocation.
	if _, err := in.Input(0); !errors.Is(err, ErrReadTensor) {
		t.Fatalf("expected ErrReadTensor before allocate, got %v", err)
	}
	if err := in.AllocateTensors(); err != nil {
		t.Fatalf("AllocateTensors: %v", err)
	}

	input, err := in.Input(0)
	if err != nil {
		t.Fatalf("Input(0): %v", err)
	}
	if diff := cmp.Diff([]int{2, 4}, input.Shape().Dims()); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
	if input.ByteSize() != 32 {
		t.Fatalf("ByteSize() = %d, want 32", input.ByteSize())
	}
	if len(Data[float32](input)) != 8 {
		t.Fatalf("expected 8 elements after resize")
	}
	if fake.Allocations != 2 {
		t.Fatalf("expected 2 allocations, got %d", fake.Allocations)
	}
}

func TestResizeRejectsBadDims(t *testing.T) {
	t.Parallel()

	in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
	err := in.ResizeInput(0, []int{1, -4})
	if !errors.Is(err, ErrResizeTensor) {
		t.Fatalf("expected ErrResizeTensor, got %v", err)
	}
	if fake.Resizes != 0 {
		t.Fatalf("invalid dims reached the engine")
	}

	fake.ResizeStatus = capi.StatusError
	err = in.ResizeInput(0, []int{1, 8})
	var tfErr *Error
	if !errors.As(err, &tfErr) || tfErr.Status != StatusError || !errors.Is(err, ErrResizeTensor) {
		t.Fatalf("expected engine status error, got %v", err)
	}
}

func TestAllocateTensorsTwice(t *testing.T) {
	t.Parallel()

	in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
	if err := in.AllocateTensors(); err != nil {
		t.Fatalf("second AllocateTensors: %v", err)
	}
	if fake.Allocations != 2 {
		t.Fatalf("expected 2 allocations, got %d", fake.Allocations)
	}
	input, err := in.Input(0)
	if err != nil {
		t.Fatalf("Input(0): %v", err)
	}
	if err := SetData(input, []float32{0, 0, 1, 1}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
}

func TestStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status capi.Status
		set    func(*backendtest.Interpreter, capi.Status)
		call   func(*Interpreter) error
		kind   error
	}{
		{
			name:   "allocate",
			status: capi.StatusDelegateError,
			set:    func(f *backendtest.Interpreter, s capi.Status) { f.AllocateStatus = s },
			call:   (*Interpreter).AllocateTensors,
			kind:   ErrAllocateTensors,
		},
		{
			name:   "invoke",
			status: capi.StatusUnresolvedOps,
			set:    func(f *backendtest.Interpreter, s capi.Status) { f.InvokeStatus = s },
			call:   (*Interpreter).Invoke,
			kind:   ErrInvoke,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
			tc.set(fake, tc.status)
			err := tc.call(in)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			var tfErr *Error
			if !errors.As(err, &tfErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if tfErr.Status != tc.status {
				t.Fatalf("Status = %v, want %v", tfErr.Status, tc.status)
			}
		})
	}
}

func TestInvokeBeforeAllocate(t *testing.T) {
	t.Parallel()

	in, _ := newTestInterpreter(t, backendtest.NewPairSums(), nil)
	if err := in.Invoke(); !errors.Is(err, ErrInvoke) {
		t.Fatalf("expected ErrInvoke, got %v", err)
	}
}

func TestInterpreterClosed(t *testing.T) {
	t.Parallel()

	in, fake := newAllocatedInterpreter(t, backendtest.NewPairSums())
	view, _ := in.Input(0)
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if fake.Deleted != 1 {
		t.Fatalf("native interpreter deleted %d times", fake.Deleted)
	}
	if view.Valid() {
		t.Fatalf("view must be invalid after Close")
	}
	if in.InputCount() != 0 || in.OutputCount() != 0 {
		t.Fatalf("closed interpreter must report no tensors")
	}

	checks := map[string]error{
		"allocate": in.AllocateTensors(),
		"invoke":   in.Invoke(),
		"resize":   in.ResizeInput(0, []int{1, 4}),
	}
	_, checks["input"] = in.Input(0)
	_, checks["output"] = in.Output(0)
	_, checks["inputs"] = in.Inputs()
	_, checks["outputs"] = in.Outputs()
	for name, err := range checks {
		if !errors.Is(err, ErrClosed) {
			t.Errorf("%s: expected ErrClosed, got %v", name, err)
		}
	}
}

func TestNewInterpreterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewInterpreter(nil, nil); !errors.Is(err, ErrInterpreterCreate) {
		t.Fatalf("nil model: expected ErrInterpreterCreate, got %v", err)
	}

	eng := backendtest.NewPairSums()
	m := newTestModel(t, eng)
	if _, err := NewInterpreter(m, &InterpreterOptions{NumThreads: -2}); !errors.Is(err, ErrInterpreterCreate) {
		t.Fatalf("NumThreads -2: expected ErrInterpreterCreate, got %v", err)
	}
	for _, threads := range []int{-1, 0, 4} {
		in, err := NewInterpreter(m, &InterpreterOptions{NumThreads: threads})
		if err != nil {
			t.Fatalf("NumThreads %d: %v", threads, err)
		}
		if got := in.handle.(*backendtest.Interpreter).Threads; got != threads {
			t.Fatalf("engine saw %d threads, want %d", got, threads)
		}
		if err := in.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestNewInterpreterEngineFailure(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m := newTestModel(t, eng)
	eng.FailInterpreter = true

	_, err := NewInterpreter(m, nil)
	if !errors.Is(err, ErrInterpreterCreate) {
		t.Fatalf("expected ErrInterpreterCreate, got %v", err)
	}
	// The model reference taken for the failed interpreter is returned.
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.life.isDestroyed() {
		t.Fatalf("model leaked after failed interpreter creation")
	}
}

func TestInputsOutputs(t *testing.T) {
	t.Parallel()

	eng := &backendtest.Engine{
		Inputs: []backendtest.TensorSpec{
			{Name: "a", Type: capi.TypeInt32, Dims: []int{2}},
			{Name: "b", Type: capi.TypeInt64, Dims: []int{1}},
		},
		Outputs: []backendtest.TensorSpec{
			{Name: "sum", Type: capi.TypeFloat32, Dims: []int{1}},
		},
	}
	in, _ := newAllocatedInterpreter(t, eng)

	inputs, err := in.Inputs()
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	var names []string
	for _, tensor := range inputs {
		names = append(names, fmt.Sprintf("%s:%v", tensor.Name(), tensor.DataType()))
	}
	if !slices.Equal(names, []string{"a:int32", "b:int64"}) {
		t.Fatalf("unexpected inputs %v", names)
	}

	outputs, err := in.Outputs()
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Name() != "sum" {
		t.Fatalf("unexpected outputs %v", outputs)
	}
}

type recordingLogger struct {
	debug []string
	warn  []string
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.debug = append(l.debug, msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warn = append(l.warn, msg) }

func TestInterpreterLogs(t *testing.T) {
	t.Parallel()

	log := &recordingLogger{}
	in, _ := newTestInterpreter(t, backendtest.NewPairSums(), &InterpreterOptions{Logger: log})
	if err := in.AllocateTensors(); err != nil {
		t.Fatalf("AllocateTensors: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"interpreter created", "tensors allocated", "interpreter closed"}
	if diff := cmp.Diff(want, log.debug); diff != "" {
		t.Fatalf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestInterpreterWarnsOnEngineFailure(t *testing.T) {
	t.Parallel()

	log := &recordingLogger{}
	in, fake := newTestInterpreter(t, backendtest.NewPairSums(), &InterpreterOptions{Logger: log})
	fake.AllocateStatus = capi.StatusError
	if err := in.AllocateTensors(); !errors.Is(err, ErrAllocateTensors) {
		t.Fatalf("expected ErrAllocateTensors, got %v", err)
	}
	fake.AllocateStatus = capi.StatusOK
	if err := in.AllocateTensors(); err != nil {
		t.Fatalf("AllocateTensors: %v", err)
	}
	fake.InvokeStatus = capi.StatusDelegateError
	if err := in.Invoke(); !errors.Is(err, ErrInvoke) {
		t.Fatalf("expected ErrInvoke, got %v", err)
	}
	want := []string{"allocate tensors failed", "invoke failed"}
	if diff := cmp.Diff(want, log.warn); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}
