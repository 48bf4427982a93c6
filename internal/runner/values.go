package runner

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/goccy/go-json"
	"github.com/samcharles93/tflite/pkg/tflite"
	"github.com/x448/float16"
)

// ErrBadInput marks request problems the caller can fix: unknown input
// names, missing inputs, undecodable or out-of-range values.
var ErrBadInput = errors.New("bad input")

type inputError struct {
	msg string
}

func (e inputError) Error() string { return e.msg }

func (e inputError) Unwrap() error { return ErrBadInput }

func badInput(format string, args ...any) error {
	return inputError{msg: fmt.Sprintf(format, args...)}
}

// DecodeData parses a JSON array of numbers (or booleans) into the Go slice
// type matching dt. Values outside the range of the element type are
// rejected. float16 tensors take ordinary JSON numbers.
func DecodeData(dt tflite.DataType, raw []byte) (any, error) {
	switch dt {
	case tflite.Bool:
		var v []bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badInput("decode %v data: %v", dt, err)
		}
		return v, nil
	case tflite.Float16, tflite.Float32, tflite.Float64:
		var v []float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, badInput("decode %v data: %v", dt, err)
		}
		switch dt {
		case tflite.Float16:
			return convertFloat(v, float16.Fromfloat32)
		case tflite.Float32:
			return convertFloat(v, func(f float32) float32 { return f })
		default:
			return v, nil
		}
	case tflite.Int8:
		return decodeSigned[int8](dt, raw, math.MinInt8, math.MaxInt8)
	case tflite.Int16:
		return decodeSigned[int16](dt, raw, math.MinInt16, math.MaxInt16)
	case tflite.Int32:
		return decodeSigned[int32](dt, raw, math.MinInt32, math.MaxInt32)
	case tflite.Int64:
		return decodeSigned[int64](dt, raw, math.MinInt64, math.MaxInt64)
	case tflite.Uint8:
		return decodeUnsigned[uint8](dt, raw, math.MaxUint8)
	case tflite.Uint16:
		return decodeUnsigned[uint16](dt, raw, math.MaxUint16)
	case tflite.Uint32:
		return decodeUnsigned[uint32](dt, raw, math.MaxUint32)
	case tflite.Uint64:
		return decodeUnsigned[uint64](dt, raw, math.MaxUint64)
	default:
		return nil, badInput("unsupported data type %v", dt)
	}
}

func convertFloat[T any](src []float64, conv func(float32) T) ([]T, error) {
	out := make([]T, len(src))
	for i, f := range src {
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return nil, badInput("value %g at %d overflows float32", f, i)
		}
		out[i] = conv(float32(f))
	}
	return out, nil
}

func decodeSigned[T int8 | int16 | int32 | int64](dt tflite.DataType, raw []byte, lo, hi int64) ([]T, error) {
	var v []int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, badInput("decode %v data: %v", dt, err)
	}
	out := make([]T, len(v))
	for i, x := range v {
		if x < lo || x > hi {
			return nil, badInput("value %d at %d out of range for %v", x, i, dt)
		}
		out[i] = T(x)
	}
	return out, nil
}

func decodeUnsigned[T uint8 | uint16 | uint32 | uint64](dt tflite.DataType, raw []byte, hi uint64) ([]T, error) {
	var v []uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, badInput("decode %v data: %v", dt, err)
	}
	out := make([]T, len(v))
	for i, x := range v {
		if x > hi {
			return nil, badInput("value %d at %d out of range for %v", x, i, dt)
		}
		out[i] = T(x)
	}
	return out, nil
}

// writeTensor copies data into t. data must be the slice type matching the
// tensor; []float32 is also accepted for float16 tensors.
func writeTensor(t *tflite.Tensor, data any) error {
	dt := t.DataType()
	if v, ok := data.([]float32); ok && dt == tflite.Float16 {
		data = toFloat16(v)
	}
	if got, ok := sliceType(data); !ok || got != dt {
		return badInput("input %q holds %v, got %T", t.Name(), dt, data)
	}
	switch v := data.(type) {
	case []bool:
		return tflite.SetData(t, v)
	case []uint8:
		return tflite.SetData(t, v)
	case []int8:
		return tflite.SetData(t, v)
	case []uint16:
		return tflite.SetData(t, v)
	case []int16:
		return tflite.SetData(t, v)
	case []uint32:
		return tflite.SetData(t, v)
	case []int32:
		return tflite.SetData(t, v)
	case []uint64:
		return tflite.SetData(t, v)
	case []int64:
		return tflite.SetData(t, v)
	case []float16.Float16:
		return tflite.SetData(t, v)
	case []float32:
		return tflite.SetData(t, v)
	case []float64:
		return tflite.SetData(t, v)
	}
	return badInput("unsupported input slice %T", data)
}

func sliceType(data any) (tflite.DataType, bool) {
	switch data.(type) {
	case []bool:
		return tflite.Bool, true
	case []uint8:
		return tflite.Uint8, true
	case []int8:
		return tflite.Int8, true
	case []uint16:
		return tflite.Uint16, true
	case []int16:
		return tflite.Int16, true
	case []uint32:
		return tflite.Uint32, true
	case []int32:
		return tflite.Int32, true
	case []uint64:
		return tflite.Uint64, true
	case []int64:
		return tflite.Int64, true
	case []float16.Float16:
		return tflite.Float16, true
	case []float32:
		return tflite.Float32, true
	case []float64:
		return tflite.Float64, true
	}
	return 0, false
}

// zeroData allocates n zero elements of dt.
func zeroData(dt tflite.DataType, n int) any {
	switch dt {
	case tflite.Bool:
		return make([]bool, n)
	case tflite.Uint8:
		return make([]uint8, n)
	case tflite.Int8:
		return make([]int8, n)
	case tflite.Uint16:
		return make([]uint16, n)
	case tflite.Int16:
		return make([]int16, n)
	case tflite.Uint32:
		return make([]uint32, n)
	case tflite.Int32:
		return make([]int32, n)
	case tflite.Uint64:
		return make([]uint64, n)
	case tflite.Int64:
		return make([]int64, n)
	case tflite.Float16:
		return make([]float16.Float16, n)
	case tflite.Float32:
		return make([]float32, n)
	case tflite.Float64:
		return make([]float64, n)
	}
	return nil
}

// readTensor copies the tensor contents out of engine memory. uint8 data is
// widened to []int and float16 to []float32 so the result encodes as a JSON
// array of numbers.
func readTensor(t *tflite.Tensor, dequantize bool) Value {
	v := Value{
		Name:  t.Name(),
		Type:  t.DataType().String(),
		Shape: t.Shape().Dims(),
	}
	q, quantized := t.QuantizationParameters()
	if quantized {
		v.Quantization = &Quantization{Scale: q.Scale, ZeroPoint: q.ZeroPoint}
	}

	switch t.DataType() {
	case tflite.Bool:
		v.Data = slices.Clone(tflite.Data[bool](t))
	case tflite.Uint8:
		raw := tflite.Data[uint8](t)
		wide := make([]int, len(raw))
		for i, b := range raw {
			wide[i] = int(b)
		}
		v.Data = wide
		if quantized && dequantize {
			v.Dequantized = dequantizeAll(raw, q)
		}
	case tflite.Int8:
		v.Data, v.Dequantized = readQuantized[int8](t, q, quantized && dequantize)
	case tflite.Uint16:
		v.Data, v.Dequantized = readQuantized[uint16](t, q, quantized && dequantize)
	case tflite.Int16:
		v.Data, v.Dequantized = readQuantized[int16](t, q, quantized && dequantize)
	case tflite.Uint32:
		v.Data = slices.Clone(tflite.Data[uint32](t))
	case tflite.Int32:
		v.Data, v.Dequantized = readQuantized[int32](t, q, quantized && dequantize)
	case tflite.Uint64:
		v.Data = slices.Clone(tflite.Data[uint64](t))
	case tflite.Int64:
		v.Data = slices.Clone(tflite.Data[int64](t))
	case tflite.Float16:
		v.Data = fromFloat16(tflite.Data[float16.Float16](t))
	case tflite.Float32:
		v.Data = slices.Clone(tflite.Data[float32](t))
	case tflite.Float64:
		v.Data = slices.Clone(tflite.Data[float64](t))
	}
	return v
}

func readQuantized[T int8 | uint16 | int16 | int32](t *tflite.Tensor, q tflite.QuantizationParameters, dequantize bool) ([]T, []float32) {
	raw := tflite.Data[T](t)
	var deq []float32
	if dequantize {
		deq = dequantizeAll(raw, q)
	}
	return slices.Clone(raw), deq
}

func dequantizeAll[T uint8 | int8 | uint16 | int16 | int32](raw []T, q tflite.QuantizationParameters) []float32 {
	out := make([]float32, len(raw))
	for i, x := range raw {
		out[i] = q.Dequantize(int32(x))
	}
	return out
}

func toFloat16(src []float32) []float16.Float16 {
	out := make([]float16.Float16, len(src))
	for i, f := range src {
		out[i] = float16.Fromfloat32(f)
	}
	return out
}

func fromFloat16(src []float16.Float16) []float32 {
	out := make([]float32, len(src))
	for i, h := range src {
		out[i] = h.Float32()
	}
	return out
}

const previewLen = 4

// preview renders the first few elements of each output for debug logs.
func preview(values []Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		data := reflect.ValueOf(v.Data)
		if data.Kind() == reflect.Slice && data.Len() > previewLen {
			out[i] = fmt.Sprintf("%s=%v...", v.Name, data.Slice(0, previewLen))
			continue
		}
		out[i] = fmt.Sprintf("%s=%v", v.Name, v.Data)
	}
	return out
}
