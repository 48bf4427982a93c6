package api

import (
	"fmt"

	"github.com/samcharles93/tflite/internal/runner"
)

// paramError ties a request error to the offending field.
type paramError struct {
	Param string
	Err   error
}

func (e *paramError) Error() string { return e.Param + ": " + e.Err.Error() }

func (e *paramError) Unwrap() []error { return []error{ErrInvalidRequest, e.Err} }

// RunnerInputs resolves every input against the model and decodes its data
// into the tensor's element type.
func (req InvokeRequest) RunnerInputs(info runner.ModelInfo) ([]runner.Input, error) {
	inputs := make([]runner.Input, len(req.Inputs))
	for i, in := range req.Inputs {
		param := fmt.Sprintf("inputs[%d]", i)
		tensor, err := lookupInput(info, in)
		if err != nil {
			return nil, &paramError{Param: param, Err: err}
		}
		data, err := runner.DecodeData(tensor.DataType(), in.Data)
		if err != nil {
			return nil, &paramError{Param: param + ".data", Err: err}
		}
		inputs[i] = runner.Input{Index: tensor.Index, Shape: in.Shape, Data: data}
	}
	return inputs, nil
}

func lookupInput(info runner.ModelInfo, in InvokeInput) (runner.TensorInfo, error) {
	if in.Name != "" {
		for _, t := range info.Inputs {
			if t.Name == in.Name {
				if in.Index != nil && *in.Index != t.Index {
					return runner.TensorInfo{}, newInvalidRequest(fmt.Sprintf("input %q is index %d, not %d", in.Name, t.Index, *in.Index))
				}
				return t, nil
			}
		}
		return runner.TensorInfo{}, newInvalidRequest(fmt.Sprintf("unknown input %q", in.Name))
	}
	if in.Index == nil {
		return runner.TensorInfo{}, newInvalidRequest("input needs a name or an index")
	}
	idx := *in.Index
	if idx < 0 || idx >= len(info.Inputs) {
		return runner.TensorInfo{}, newInvalidRequest(fmt.Sprintf("input index %d out of range [0, %d)", idx, len(info.Inputs)))
	}
	return info.Inputs[idx], nil
}
