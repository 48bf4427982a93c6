// Package api exposes a runner over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/internal/runner"
)

// Predictor is the part of *runner.Runner the server needs.
type Predictor interface {
	Info() runner.ModelInfo
	Predict(ctx context.Context, inputs []runner.Input, opts runner.Options) (*runner.Result, error)
}

type Server struct {
	predictor Predictor
	log       logger.Logger
	clock     func() time.Time
	// timeout bounds the wait for a free interpreter; 0 waits as long as the
	// client does.
	timeout time.Duration
}

type Option func(*Server)

func WithLogger(log logger.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithQueueTimeout bounds how long a request waits for an interpreter.
func WithQueueTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func NewServer(p Predictor, opts ...Option) *Server {
	s := &Server{
		predictor: p,
		log:       logger.Discard(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(requestID)
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/invoke", s.handleInvoke)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModel(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.predictor.Info())
}

func (s *Server) handleInvoke(c *echo.Context) error {
	req, err := decodeJSON[InvokeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("decode request: %v", err), "")
	}
	if len(req.Inputs) == 0 {
		return writeBadRequest(c, "inputs is required", "inputs")
	}

	info := s.predictor.Info()
	inputs, err := req.RunnerInputs(info)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			return writeBadRequest(c, pe.Err.Error(), pe.Param)
		}
		return writeBadRequest(c, err.Error(), "")
	}

	ctx := c.Request().Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.predictor.Predict(ctx, inputs, runner.Options{Dequantize: req.Dequantize})
	if err != nil {
		status, errType := classify(err)
		s.log.Warn("invoke failed",
			"request_id", c.Response().Header().Get(headerRequestID),
			"status", status,
			"error", err,
		)
		return writeError(c, status, errType, err.Error(), "", "")
	}

	return writeJSON(c, http.StatusOK, InvokeResponse{
		ID:          "inv_" + uuid.NewString(),
		Object:      "invocation",
		Created:     s.clock().Unix(),
		Model:       info.Source,
		Interpreter: res.Interpreter,
		InvokeMS:    float64(res.Invoke.Microseconds()) / 1000,
		Outputs:     res.Outputs,
	})
}
