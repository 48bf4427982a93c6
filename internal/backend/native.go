package backend

import (
	"unsafe"

	"github.com/samcharles93/tflite/internal/capi"
)

// Native runs models in the linked TensorFlow Lite C library. In builds
// without the tflite tag every constructor fails and Available is false.
type Native struct{}

func (Native) Available() bool { return capi.Available() }

func (Native) ModelFromFile(path string) Model {
	if m := capi.NewModelFromFile(path); m != nil {
		return m
	}
	return nil
}

func (Native) ModelFromBytes(data []byte) Model {
	if m := capi.NewModelFromBytes(data); m != nil {
		return m
	}
	return nil
}

func (Native) ModelFromBuffer(data unsafe.Pointer, size int) Model {
	if m := capi.NewModelFromBuffer(data, size); m != nil {
		return m
	}
	return nil
}

func (Native) NewInterpreter(m Model, numThreads int, d Delegate) Interpreter {
	model, ok := m.(*capi.Model)
	if !ok {
		return nil
	}
	opts := capi.NewInterpreterOptions()
	if opts == nil {
		return nil
	}
	// The options may be deleted once the interpreter exists; the delegate
	// may not.
	defer opts.Delete()

	if numThreads != 0 {
		opts.SetNumThreads(numThreads)
	}
	if d != nil {
		delegate, ok := d.(*capi.Delegate)
		if !ok {
			return nil
		}
		opts.AddDelegate(delegate)
	}
	if in := capi.NewInterpreter(model, opts); in != nil {
		return nativeInterpreter{in}
	}
	return nil
}

func (Native) NewXNNPackDelegate(opts capi.XNNPackOptions) Delegate {
	if d := capi.NewXNNPackDelegate(opts); d != nil {
		return d
	}
	return nil
}

type nativeInterpreter struct {
	*capi.Interpreter
}

func (n nativeInterpreter) InputTensor(index int) Tensor {
	if t := n.Interpreter.InputTensor(index); t != nil {
		return t
	}
	return nil
}

func (n nativeInterpreter) OutputTensor(index int) Tensor {
	if t := n.Interpreter.OutputTensor(index); t != nil {
		return t
	}
	return nil
}
