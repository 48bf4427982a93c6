package runner

import (
	"time"

	"github.com/samcharles93/tflite/pkg/tflite"
)

// Quantization mirrors tflite.QuantizationParameters for JSON output.
type Quantization struct {
	Scale     float32 `json:"scale"`
	ZeroPoint int32   `json:"zero_point"`
}

// TensorInfo describes a model input or output as allocated at start-up.
type TensorInfo struct {
	Index        int           `json:"index"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Shape        []int         `json:"shape"`
	ByteSize     int           `json:"byte_size"`
	Quantization *Quantization `json:"quantization,omitempty"`
}

// DataType parses Type. It returns 0 for an unknown name.
func (t TensorInfo) DataType() tflite.DataType {
	dt, _ := tflite.ParseDataType(t.Type)
	return dt
}

func describe(index int, t *tflite.Tensor) TensorInfo {
	info := TensorInfo{
		Index:    index,
		Name:     t.Name(),
		Type:     t.DataType().String(),
		Shape:    t.Shape().Dims(),
		ByteSize: t.ByteSize(),
	}
	if q, ok := t.QuantizationParameters(); ok {
		info.Quantization = &Quantization{Scale: q.Scale, ZeroPoint: q.ZeroPoint}
	}
	return info
}

// ModelInfo describes the loaded model.
type ModelInfo struct {
	Source        string       `json:"source"`
	EngineVersion string       `json:"engine_version"`
	Interpreters  int          `json:"interpreters"`
	Delegate      string       `json:"delegate,omitempty"`
	Inputs        []TensorInfo `json:"inputs"`
	Outputs       []TensorInfo `json:"outputs"`
}

// Input is one tensor of a Predict request.
type Input struct {
	// Name selects the input tensor. When empty, Index is used.
	Name  string
	Index int
	// Shape resizes the input for this request. nil means the shape the
	// model was loaded with.
	Shape []int
	// Data is a slice matching the tensor type, e.g. []float32 or []int8, as
	// returned by DecodeData. []float32 is accepted for float16 inputs.
	Data any
}

// Value is a tensor copied out of the engine.
type Value struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Shape        []int         `json:"shape"`
	Data         any           `json:"data"`
	Quantization *Quantization `json:"quantization,omitempty"`
	// Dequantized holds Scale*(q-ZeroPoint) for quantized outputs when
	// requested.
	Dequantized []float32 `json:"dequantized,omitempty"`
}

// Options tune a single Predict call.
type Options struct {
	Dequantize bool
}

// Result is the outcome of one Predict call.
type Result struct {
	Outputs []Value `json:"outputs"`
	// Interpreter is the pool slot that served the request.
	Interpreter int           `json:"interpreter"`
	Invoke      time.Duration `json:"invoke_ns"`
}
