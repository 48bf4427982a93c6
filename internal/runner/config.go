package runner

import (
	"fmt"
	"runtime"

	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/pkg/tflite"
)

// Config configures New.
type Config struct {
	ModelPath string
	// Mmap maps the model file instead of copying it into native memory.
	Mmap bool
	// Threads per interpreter; 0 lets the engine decide.
	Threads int
	// Interpreters is the pool size. Each interpreter serves one request at a
	// time. 0 means 1.
	Interpreters int
	// XNNPack, when set, gives every interpreter its own XNNPACK delegate.
	XNNPack *tflite.DelegateOptions
	Logger  logger.Logger
}

func (c *Config) normalize() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Interpreters == 0 {
		c.Interpreters = 1
	}
	if c.Interpreters < 0 || c.Interpreters > 4*runtime.NumCPU() {
		return fmt.Errorf("interpreters must be between 1 and %d, got %d", 4*runtime.NumCPU(), c.Interpreters)
	}
	if c.Threads < -1 {
		return fmt.Errorf("threads must be -1, 0 or positive, got %d", c.Threads)
	}
	if c.XNNPack != nil && c.XNNPack.NumThreads < 0 {
		return fmt.Errorf("xnnpack threads must not be negative, got %d", c.XNNPack.NumThreads)
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	return nil
}
