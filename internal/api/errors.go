package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/samcharles93/tflite/internal/runner"
	"github.com/samcharles93/tflite/pkg/tflite"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps an inference error onto an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, runner.ErrBadInput),
		errors.Is(err, tflite.ErrInvalidIndex),
		errors.Is(err, tflite.ErrInvalidTensorDataCount),
		errors.Is(err, tflite.ErrResizeTensor):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, runner.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "timeout_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
