package tflite

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"github.com/samcharles93/tflite/internal/backend"
	"github.com/samcharles93/tflite/internal/capi"
)

// XNNPackFlags selects optional XNNPACK delegate features.
type XNNPackFlags = capi.XNNPackFlags

const (
	FlagQS8                        = capi.XNNPackFlagQS8
	FlagQU8                        = capi.XNNPackFlagQU8
	FlagForceFP16                  = capi.XNNPackFlagForceFP16
	FlagDynamicFullyConnected      = capi.XNNPackFlagDynamicFullyConnected
	FlagVariableOperators          = capi.XNNPackFlagVariableOperators
	FlagTransientIndirectionBuffer = capi.XNNPackFlagTransientIndirectionBuffer
	FlagEnableLatestOperators      = capi.XNNPackFlagEnableLatestOperators
	FlagEnableSubgraphReshaping    = capi.XNNPackFlagEnableSubgraphReshaping
)

// ParseXNNPackFlag parses a flag name such as "qs8" or "force_fp16".
func ParseXNNPackFlag(name string) (XNNPackFlags, error) {
	return capi.ParseXNNPackFlag(name)
}

// DelegateOptions configures an XNNPACK delegate.
type DelegateOptions struct {
	NumThreads int
	Flags      XNNPackFlags
	// WeightsCache is an optional native TfLiteXNNPackDelegateWeightsCache*.
	WeightsCache unsafe.Pointer
	// WeightCacheFilePath enables the file-backed weight cache when set.
	WeightCacheFilePath string
	HandleVariableOps   bool
}

// DefaultDelegateOptions returns single-threaded execution with quantized
// 8-bit acceleration (signed and unsigned) enabled.
func DefaultDelegateOptions() DelegateOptions {
	d := capi.DefaultXNNPackOptions()
	return DelegateOptions{
		NumThreads:          d.NumThreads,
		Flags:               d.Flags,
		WeightsCache:        d.WeightsCache,
		WeightCacheFilePath: d.WeightCacheFilePath,
		HandleVariableOps:   d.HandleVariableOps,
	}
}

// EngineDelegateDefaults reports the XNNPACK defaults compiled into the
// linked library. Builds without the library report DefaultDelegateOptions.
func EngineDelegateDefaults() DelegateOptions {
	d := capi.EngineXNNPackDefaults()
	return DelegateOptions{
		NumThreads:        d.NumThreads,
		Flags:             d.Flags,
		HandleVariableOps: d.HandleVariableOps,
	}
}

func (o DelegateOptions) native() capi.XNNPackOptions {
	return capi.XNNPackOptions{
		NumThreads:          o.NumThreads,
		Flags:               o.Flags,
		WeightsCache:        o.WeightsCache,
		HandleVariableOps:   o.HandleVariableOps,
		WeightCacheFilePath: o.WeightCacheFilePath,
	}
}

// Delegate offloads supported operators to XNNPACK. A delegate can be
// attached to a single interpreter; its native handle outlives that
// interpreter even if Close is called first.
type Delegate struct {
	eng      engine
	handle   delegateHandle
	opts     DelegateOptions
	attached atomic.Bool
	life     lifetime
}

// NewXNNPackDelegate creates an XNNPACK delegate.
func NewXNNPackDelegate(opts DelegateOptions) (*Delegate, error) {
	return newXNNPackDelegate(backend.Default(), opts)
}

func newXNNPackDelegate(eng engine, opts DelegateOptions) (*Delegate, error) {
	h := eng.NewXNNPackDelegate(opts.native())
	if h == nil {
		return nil, &Error{Op: "create xnnpack delegate", Kind: ErrDelegateCreate, Err: engineCause(eng)}
	}
	d := &Delegate{eng: eng, handle: h, opts: opts}
	d.life.destroy = func() error {
		d.handle.Delete()
		d.handle = nil
		return nil
	}
	return d, nil
}

// Options returns the options the delegate was created with.
func (d *Delegate) Options() DelegateOptions { return d.opts }

// Close releases the delegate. If an interpreter still uses it, the native
// delete happens when that interpreter is closed. Close is idempotent.
func (d *Delegate) Close() error {
	return d.life.close()
}

// attach reserves the delegate for one interpreter.
func (d *Delegate) attach() error {
	if !d.life.acquire() {
		return ErrClosed
	}
	if !d.attached.CompareAndSwap(false, true) {
		return errors.Join(ErrDelegateInUse, d.life.release())
	}
	return nil
}

// detach undoes attach when the interpreter could not be created, so the
// delegate can be used again.
func (d *Delegate) detach() error {
	d.attached.Store(false)
	return d.life.release()
}
