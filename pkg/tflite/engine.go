package tflite

import (
	"github.com/samcharles93/tflite/internal/backend"
	"github.com/samcharles93/tflite/internal/capi"
)

// The safety layer reaches the engine only through internal/backend. Models
// and delegates keep the engine they were created with.
type (
	engine            = backend.Engine
	modelHandle       = backend.Model
	delegateHandle    = backend.Delegate
	interpreterHandle = backend.Interpreter
	tensorHandle      = backend.Tensor
)

// ErrUnavailable is the cause attached to load failures in builds without the
// native library (built without the tflite tag).
var ErrUnavailable = capi.ErrUnavailable

// Available reports whether the TensorFlow Lite C library is linked in.
func Available() bool { return capi.Available() }

// Version reports the linked library version, or "" when unavailable.
func Version() string { return capi.Version() }
