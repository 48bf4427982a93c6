package tflite

import (
	"testing"

	"github.com/samcharles93/tflite/internal/backend/backendtest"
)

func newTestModel(t *testing.T, eng *backendtest.Engine) *Model {
	t.Helper()
	m, err := loadModel(eng, "model.tflite")
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestInterpreter(t *testing.T, eng *backendtest.Engine, opts *InterpreterOptions) (*Interpreter, *backendtest.Interpreter) {
	t.Helper()
	m := newTestModel(t, eng)
	in, err := NewInterpreter(m, opts)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	t.Cleanup(func() { _ = in.Close() })
	return in, in.handle.(*backendtest.Interpreter)
}

func newAllocatedInterpreter(t *testing.T, eng *backendtest.Engine) (*Interpreter, *backendtest.Interpreter) {
	t.Helper()
	in, fake := newTestInterpreter(t, eng, nil)
	if err := in.AllocateTensors(); err != nil {
		t.Fatalf("AllocateTensors: %v", err)
	}
	return in, fake
}

func (l *lifetime) isDestroyed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyed
}
