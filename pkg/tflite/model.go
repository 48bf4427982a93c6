package tflite

import (
	"errors"
	"fmt"
	"os"

	"github.com/samcharles93/tflite/internal/backend"
)

// Model is a loaded TensorFlow Lite flatbuffer. It may be shared by any
// number of interpreters; the native model is destroyed once Close has been
// called and every interpreter built from it has been closed.
type Model struct {
	eng    engine
	handle modelHandle
	source string
	life   lifetime
	// unmap releases a memory mapping backing the model, if any.
	unmap func() error
}

// LoadModel loads a model from a file path.
func LoadModel(path string) (*Model, error) {
	return loadModel(backend.Default(), path)
}

// LoadModelFromBytes loads a model from an in-memory flatbuffer. data is
// copied into native memory, so the caller may reuse it afterwards.
func LoadModelFromBytes(data []byte) (*Model, error) {
	return loadModelFromBytes(backend.Default(), data)
}

func loadModel(eng engine, path string) (*Model, error) {
	h := eng.ModelFromFile(path)
	if h == nil {
		return nil, &Error{Op: "load model " + path, Kind: ErrModelLoad, Err: loadCause(eng, path)}
	}
	return newModel(eng, h, path, nil), nil
}

func loadModelFromBytes(eng engine, data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, &Error{Op: "load model from bytes", Kind: ErrModelLoad, Err: errors.New("empty model buffer")}
	}
	h := eng.ModelFromBytes(data)
	if h == nil {
		return nil, &Error{Op: "load model from bytes", Kind: ErrModelLoad, Err: engineCause(eng)}
	}
	return newModel(eng, h, "<bytes>", nil), nil
}

func newModel(eng engine, h modelHandle, source string, unmap func() error) *Model {
	m := &Model{eng: eng, handle: h, source: source, unmap: unmap}
	m.life.destroy = m.destroy
	return m
}

// Source is the path the model was loaded from, or "<bytes>".
func (m *Model) Source() string { return m.source }

// Close releases the model. Destruction of the native handle is deferred
// until every interpreter using the model has been closed. Close is
// idempotent.
func (m *Model) Close() error {
	return m.life.close()
}

func (m *Model) destroy() error {
	m.handle.Delete()
	m.handle = nil
	if m.unmap != nil {
		if err := m.unmap(); err != nil {
			return fmt.Errorf("unmap model %s: %w", m.source, err)
		}
	}
	return nil
}

// loadCause gives a better reason than "NULL" when the engine rejects a path.
func loadCause(eng engine, path string) error {
	if err := engineCause(eng); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

func engineCause(eng engine) error {
	if !eng.Available() {
		return ErrUnavailable
	}
	return nil
}
