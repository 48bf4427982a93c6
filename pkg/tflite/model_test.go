package tflite

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/tflite/internal/backend/backendtest"
)

func TestLoadModelFailures(t *testing.T) {
	t.Parallel()

	t.Run("engine rejects file", func(t *testing.T) {
		eng := &backendtest.Engine{FailModel: true}
		_, err := loadModel(eng, filepath.Join(t.TempDir(), "missing.tflite"))
		if !errors.Is(err, ErrModelLoad) {
			t.Fatalf("expected ErrModelLoad, got %v", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected the missing file to be reported, got %v", err)
		}
	})

	t.Run("engine unavailable", func(t *testing.T) {
		eng := &backendtest.Engine{FailModel: true, Unavailable: true}
		_, err := loadModel(eng, "model.tflite")
		if !errors.Is(err, ErrModelLoad) || !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrModelLoad and ErrUnavailable, got %v", err)
		}
	})

	t.Run("empty bytes", func(t *testing.T) {
		eng := &backendtest.Engine{}
		if _, err := loadModelFromBytes(eng, nil); !errors.Is(err, ErrModelLoad) {
			t.Fatalf("expected ErrModelLoad, got %v", err)
		}
		if len(eng.Models()) != 0 {
			t.Fatalf("empty buffer reached the engine")
		}
	})

	t.Run("invalid bytes", func(t *testing.T) {
		eng := &backendtest.Engine{FailModel: true}
		if _, err := loadModelFromBytes(eng, []byte("not a flatbuffer")); !errors.Is(err, ErrModelLoad) {
			t.Fatalf("expected ErrModelLoad, got %v", err)
		}
	})
}

func TestLoadModelFromBytesCopies(t *testing.T) {
	t.Parallel()

	eng := &backendtest.Engine{}
	data := []byte("TFL3 payload")
	m, err := loadModelFromBytes(eng, data)
	if err != nil {
		t.Fatalf("loadModelFromBytes: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	data[0] = 'X'
	if got := string(eng.Models()[0].Data); got != "TFL3 payload" {
		t.Fatalf("engine sees caller mutation: %q", got)
	}
	if m.Source() != "<bytes>" {
		t.Fatalf("Source() = %q", m.Source())
	}
}

func TestModelOutlivesInterpreters(t *testing.T) {
	t.Parallel()

	eng := backendtest.NewPairSums()
	m, err := loadModel(eng, "model.tflite")
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	first, err := NewInterpreter(m, nil)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	second, err := NewInterpreter(m, nil)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("model Close: %v", err)
	}
	if len(eng.Events()) != 0 {
		t.Fatalf("model destroyed while interpreters are open: %v", eng.Events())
	}
	if _, err := NewInterpreter(m, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed for a closed model, got %v", err)
	}

	// The surviving interpreters keep working.
	if err := first.AllocateTensors(); err != nil {
		t.Fatalf("AllocateTensors: %v", err)
	}
	input, _ := first.Input(0)
	if err := SetData(input, []float32{1, 1, 2, 2}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := first.Invoke(); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"interpreter.delete", "interpreter.delete", "model.delete"}
	if diff := cmp.Diff(want, eng.Events()); diff != "" {
		t.Fatalf("destroy order mismatch (-want +got):\n%s", diff)
	}
	if eng.Models()[0].Deleted != 1 {
		t.Fatalf("model deleted %d times", eng.Models()[0].Deleted)
	}
}

func TestModelCloseIdempotent(t *testing.T) {
	t.Parallel()

	eng := &backendtest.Engine{}
	m, err := loadModel(eng, "model.tflite")
	if err != nil {
		t.Fatalf("loadModel: %v", err)
	}
	for range 3 {
		if err := m.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if eng.Models()[0].Deleted != 1 {
		t.Fatalf("model deleted %d times", eng.Models()[0].Deleted)
	}
}

func TestMapModel(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0x54, 0x46, 0x4c, 0x33}, 64)
	path := filepath.Join(t.TempDir(), "model.tflite")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	eng := backendtest.NewPairSums()
	m, err := mapModel(eng, path)
	if err != nil {
		t.Fatalf("mapModel: %v", err)
	}
	if m.Source() != path {
		t.Fatalf("Source() = %q, want %q", m.Source(), path)
	}
	if !bytes.Equal(eng.Models()[0].Data, payload) {
		t.Fatalf("engine received %d bytes, want the file contents", len(eng.Models()[0].Data))
	}

	in, err := NewInterpreter(m, nil)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("model Close: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("interpreter Close: %v", err)
	}
	if !m.life.isDestroyed() {
		t.Fatalf("mapped model not destroyed")
	}
}

func TestMapModelFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := mapModel(&backendtest.Engine{}, filepath.Join(dir, "missing.tflite")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}

	empty := filepath.Join(dir, "empty.tflite")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := mapModel(&backendtest.Engine{}, empty); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}

	bad := filepath.Join(dir, "bad.tflite")
	if err := os.WriteFile(bad, []byte("junk"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := mapModel(&backendtest.Engine{FailModel: true}, bad); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
}
