package api

import (
	"github.com/goccy/go-json"
	"github.com/samcharles93/tflite/internal/runner"
)

// InvokeRequest is the body of POST /v1/invoke.
type InvokeRequest struct {
	Inputs     []InvokeInput `json:"inputs"`
	Dequantize bool          `json:"dequantize,omitempty"`
}

// InvokeInput names an input tensor by name or index. Data is a JSON array
// of numbers (booleans for bool tensors) in row-major order.
type InvokeInput struct {
	Name  string          `json:"name,omitempty"`
	Index *int            `json:"index,omitempty"`
	Shape []int           `json:"shape,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// InvokeResponse is the body of a successful POST /v1/invoke.
type InvokeResponse struct {
	ID          string         `json:"id"`
	Object      string         `json:"object"`
	Created     int64          `json:"created"`
	Model       string         `json:"model"`
	Interpreter int            `json:"interpreter"`
	InvokeMS    float64        `json:"invoke_ms"`
	Outputs     []runner.Value `json:"outputs"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}
