package tflite

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/tflite/internal/backend/backendtest"
)

func TestDefaultDelegateOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultDelegateOptions()
	if opts.NumThreads != 1 {
		t.Fatalf("NumThreads = %d, want 1", opts.NumThreads)
	}
	if opts.Flags != FlagQS8|FlagQU8 {
		t.Fatalf("Flags = %v, want qs8|qu8", opts.Flags)
	}
	if opts.WeightsCache != nil || opts.WeightCacheFilePath != "" || opts.HandleVariableOps {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}

func TestDelegateOptionsReachEngine(t *testing.T) {
	t.Parallel()

	eng := &backendtest.Engine{}
	opts := DelegateOptions{
		NumThreads:          4,
		Flags:               FlagForceFP16 | FlagDynamicFullyConnected,
		WeightCacheFilePath: "/tmp/weights.cache",
		HandleVariableOps:   true,
	}
	d, err := newXNNPackDelegate(eng, opts)
	if err != nil {
		t.Fatalf("newXNNPackDelegate: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	native := eng.Delegates()[0].Options
	if native.NumThreads != 4 || native.Flags != opts.Flags || native.WeightCacheFilePath != "/tmp/weights.cache" || !native.HandleVariableOps {
		t.Fatalf("engine received %+v", native)
	}
	if d.Options() != opts {
		t.Fatalf("Options() = %+v", d.Options())
	}
}

func TestDelegateCreateFailure(t *testing.T) {
	t.Parallel()

	_, err := newXNNPackDelegate(&backendtest.Engine{FailDelegate: true}, DefaultDelegateOptions())
	if !errors.Is(err, ErrDelegateCreate) {
		t.Fatalf("expected ErrDelegateCreate, got %v", err)
	}
}

func TestDelegateDestroyOrder(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m, err := loadModel(eng, "model.tflite")
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	d, err := newXNNPackDelegate(eng, DefaultDelegateOptions())
	if err != nil {
		t.Fatalf("newXNNPackDelegate: %v", err)
	}
	in, err := NewInterpreter(m, &InterpreterOptions{Delegate: d})
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	if eng.Interpreters()[0].Delegate != eng.Delegates()[0] {
		t.Fatalf("delegate not passed to the engine")
	}

	// Closing the owners first must not free anything the interpreter uses.
	if err := d.Close(); err != nil {
		t.Fatalf("delegate Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("model Close: %v", err)
	}
	if len(eng.Events()) != 0 {
		t.Fatalf("resources destroyed early: %v", eng.Events())
	}

	if err := in.Close(); err != nil {
		t.Fatalf("interpreter Close: %v", err)
	}
	want := []string{"interpreter.delete", "delegate.delete", "model.delete"}
	if diff := cmp.Diff(want, eng.Events()); diff != "" {
		t.Fatalf("destroy order mismatch (-want +got):\n%s", diff)
	}
}

func TestDelegateAttachOnce(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m := newTestModel(t, eng)
	d, err := newXNNPackDelegate(eng, DefaultDelegateOptions())
	if err != nil {
		t.Fatalf("newXNNPackDelegate: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	first, err := NewInterpreter(m, &InterpreterOptions{Delegate: d})
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	_, err = NewInterpreter(m, &InterpreterOptions{Delegate: d})
	if !errors.Is(err, ErrDelegateInUse) || !errors.Is(err, ErrInterpreterCreate) {
		t.Fatalf("expected ErrDelegateInUse, got %v", err)
	}
	if len(eng.Interpreters()) != 1 {
		t.Fatalf("second interpreter reached the engine")
	}
}

func TestClosedDelegateRejected(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m := newTestModel(t, eng)
	d, err := newXNNPackDelegate(eng, DefaultDelegateOptions())
	if err != nil {
		t.Fatalf("newXNNPackDelegate: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if eng.Delegates()[0].Deleted != 1 {
		t.Fatalf("unattached delegate not destroyed on Close")
	}
	if _, err := NewInterpreter(m, &InterpreterOptions{Delegate: d}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// The model reference taken for the failed attempt is returned.
	if err := m.Close(); err != nil {
		t.Fatalf("model Close: %v", err)
	}
	if !m.life.isDestroyed() {
		t.Fatalf("model leaked")
	}
}

func TestInterpreterCreateFailureReleasesDelegate(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m := newTestModel(t, eng)
	d, err := newXNNPackDelegate(eng, DefaultDelegateOptions())
	if err != nil {
		t.Fatalf("newXNNPackDelegate: %v", err)
	}
	eng.FailInterpreter = true
	if _, err := NewInterpreter(m, &InterpreterOptions{Delegate: d}); !errors.Is(err, ErrInterpreterCreate) {
		t.Fatalf("expected ErrInterpreterCreate, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("delegate Close: %v", err)
	}
	if eng.Delegates()[0].Deleted != 1 {
		t.Fatalf("delegate leaked after failed interpreter creation")
	}
}

func TestDelegateReusableAfterFailedCreate(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m := newTestModel(t, eng)
	d, err := newXNNPackDelegate(eng, DefaultDelegateOptions())
	if err != nil {
		t.Fatalf("newXNNPackDelegate: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	eng.FailInterpreter = true
	if _, err := NewInterpreter(m, &InterpreterOptions{Delegate: d}); !errors.Is(err, ErrInterpreterCreate) {
		t.Fatalf("expected ErrInterpreterCreate, got %v", err)
	}

	eng.FailInterpreter = false
	in, err := NewInterpreter(m, &InterpreterOptions{Delegate: d})
	if err != nil {
		t.Fatalf("retry with the same delegate: %v", err)
	}
	t.Cleanup(func() { _ = in.Close() })
	if got := in.handle.(*backendtest.Interpreter).Delegate; got != eng.Delegates()[0] {
		t.Fatalf("delegate not passed to the engine on retry")
	}

	// Once attached it stays reserved.
	if _, err := NewInterpreter(m, &InterpreterOptions{Delegate: d}); !errors.Is(err, ErrDelegateInUse) {
		t.Fatalf("expected ErrDelegateInUse, got %v", err)
	}
}

func TestParseXNNPackFlag(t *testing.T) {
	t.Parallel()

	flag, err := ParseXNNPackFlag("force_fp16")
	if err != nil || flag != FlagForceFP16 {
		t.Fatalf("ParseXNNPackFlag(force_fp16) = %v, %v", flag, err)
	}
	if _, err := ParseXNNPackFlag("turbo"); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}

func TestEngineDelegateDefaultsWithoutLibrary(t *testing.T) {
	t.Parallel()

	if Available() {
		t.Skip("native library linked; defaults come from the engine")
	}
	got := EngineDelegateDefaults()
	want := DefaultDelegateOptions()
	if got.NumThreads != want.NumThreads || got.Flags != want.Flags || got.HandleVariableOps != want.HandleVariableOps {
		t.Fatalf("EngineDelegateDefaults() = %+v, want %+v", got, want)
	}
}
