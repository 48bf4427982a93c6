// Package runner serves inference requests from a pool of interpreters that
// share one model. Tensor views never leave the package: inputs are copied
// in and outputs copied out while the interpreter is held.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/pkg/tflite"
	"golang.org/x/sync/errgroup"
)

type slot struct {
	id       int
	in       *tflite.Interpreter
	delegate *tflite.Delegate
	// shapes are the input shapes the interpreter currently holds.
	shapes     [][]int
	needsAlloc bool
}

// Runner owns a model and a pool of interpreters built from it. Predict is
// safe for concurrent use.
type Runner struct {
	cfg   Config
	log   logger.Logger
	model *tflite.Model
	slots []*slot
	pool  *pool[*slot]
	info  ModelInfo

	closeOnce sync.Once
	closeErr  error
}

// New loads the model and builds cfg.Interpreters interpreters in parallel,
// each with tensors allocated.
func New(ctx context.Context, cfg Config) (*Runner, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	log := cfg.Logger.With("model", cfg.ModelPath)

	start := time.Now()
	load := tflite.LoadModel
	if cfg.Mmap {
		load = tflite.MapModel
	}
	model, err := load(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	log.Debug("model loaded", "mmap", cfg.Mmap, "elapsed", time.Since(start))

	r := &Runner{
		cfg:   cfg,
		log:   log,
		model: model,
		slots: make([]*slot, cfg.Interpreters),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := r.newSlot(i)
			if err != nil {
				return fmt.Errorf("interpreter %d: %w", i, err)
			}
			r.slots[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Join(err, r.closeSlots())
	}

	if err := r.describe(); err != nil {
		return nil, errors.Join(err, r.closeSlots())
	}
	r.pool = newPool(r.slots)
	log.Info("runner ready",
		"interpreters", cfg.Interpreters,
		"threads", cfg.Threads,
		"xnnpack", cfg.XNNPack != nil,
		"inputs", len(r.info.Inputs),
		"outputs", len(r.info.Outputs),
		"elapsed", time.Since(start),
	)
	return r, nil
}

func (r *Runner) newSlot(id int) (*slot, error) {
	s := &slot{id: id}
	opts := &tflite.InterpreterOptions{
		NumThreads: r.cfg.Threads,
		Logger:     r.log.With("interpreter", id),
	}
	if r.cfg.XNNPack != nil {
		d, err := tflite.NewXNNPackDelegate(*r.cfg.XNNPack)
		if err != nil {
			return nil, err
		}
		s.delegate = d
		opts.Delegate = d
	}
	in, err := tflite.NewInterpreter(r.model, opts)
	if err != nil {
		if s.delegate != nil {
			err = errors.Join(err, s.delegate.Close())
		}
		return nil, err
	}
	s.in = in
	if err := in.AllocateTensors(); err != nil {
		return nil, errors.Join(err, s.close())
	}
	inputs, err := in.Inputs()
	if err != nil {
		return nil, errors.Join(err, s.close())
	}
	for _, t := range inputs {
		s.shapes = append(s.shapes, t.Shape().Dims())
	}
	return s, nil
}

func (s *slot) close() error {
	var errs []error
	if s.in != nil {
		errs = append(errs, s.in.Close())
	}
	if s.delegate != nil {
		errs = append(errs, s.delegate.Close())
	}
	return errors.Join(errs...)
}

func (r *Runner) describe() error {
	s := r.slots[0]
	inputs, err := s.in.Inputs()
	if err != nil {
		return err
	}
	outputs, err := s.in.Outputs()
	if err != nil {
		return err
	}
	r.info = ModelInfo{
		Source:        r.model.Source(),
		EngineVersion: tflite.Version(),
		Interpreters:  len(r.slots),
	}
	if r.cfg.XNNPack != nil {
		r.info.Delegate = "xnnpack"
	}
	for i, t := range inputs {
		r.info.Inputs = append(r.info.Inputs, describe(i, t))
	}
	for i, t := range outputs {
		r.info.Outputs = append(r.info.Outputs, describe(i, t))
	}
	return nil
}

// Info describes the model's inputs and outputs at their loaded shapes.
func (r *Runner) Info() ModelInfo { return r.info }

// InputIndex resolves an input tensor name.
func (r *Runner) InputIndex(name string) (int, bool) {
	for _, t := range r.info.Inputs {
		if t.Name == name {
			return t.Index, true
		}
	}
	return 0, false
}

// ZeroInputs returns zero-filled inputs at the loaded shapes.
func (r *Runner) ZeroInputs() []Input {
	inputs := make([]Input, len(r.info.Inputs))
	for i, t := range r.info.Inputs {
		inputs[i] = Input{
			Index: t.Index,
			Name:  t.Name,
			Data:  zeroData(t.DataType(), tflite.NewShape(t.Shape...).NumElements()),
		}
	}
	return inputs
}

// Predict runs one inference. Every model input must be supplied exactly
// once. It waits for a free interpreter; once Invoke has started it runs to
// completion regardless of ctx.
func (r *Runner) Predict(ctx context.Context, inputs []Input, opts Options) (*Result, error) {
	bound, err := r.bind(inputs)
	if err != nil {
		return nil, err
	}

	s, err := r.pool.get(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.put(s)

	if err := r.prepare(s, bound); err != nil {
		return nil, err
	}
	for i, in := range bound {
		t, err := s.in.Input(i)
		if err != nil {
			return nil, err
		}
		if err := writeTensor(t, in.Data); err != nil {
			return nil, fmt.Errorf("input %q: %w", t.Name(), err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.in.Invoke(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	outputs, err := s.in.Outputs()
	if err != nil {
		return nil, err
	}
	res := &Result{
		Outputs:     make([]Value, len(outputs)),
		Interpreter: s.id,
		Invoke:      elapsed,
	}
	for i, t := range outputs {
		res.Outputs[i] = readTensor(t, opts.Dequantize)
	}
	if r.log.Enabled(slog.LevelDebug) {
		r.log.Debug("invoke", "interpreter", s.id, "elapsed", elapsed, "outputs", preview(res.Outputs))
	}
	return res, nil
}

// bind orders inputs by tensor index and fills in default shapes.
func (r *Runner) bind(inputs []Input) ([]Input, error) {
	n := len(r.info.Inputs)
	bound := make([]Input, n)
	seen := make([]bool, n)
	for _, in := range inputs {
		idx := in.Index
		if in.Name != "" {
			var ok bool
			if idx, ok = r.InputIndex(in.Name); !ok {
				return nil, badInput("unknown input %q", in.Name)
			}
		}
		if idx < 0 || idx >= n {
			return nil, &tflite.IndexError{Op: "input tensor", Index: idx, Count: n}
		}
		if seen[idx] {
			return nil, badInput("input %q given more than once", r.info.Inputs[idx].Name)
		}
		seen[idx] = true
		if in.Shape == nil {
			in.Shape = r.info.Inputs[idx].Shape
		}
		in.Index = idx
		bound[idx] = in
	}
	var missing []string
	for i, ok := range seen {
		if !ok {
			missing = append(missing, r.info.Inputs[i].Name)
		}
	}
	if len(missing) > 0 {
		return nil, badInput("missing inputs: %s", strings.Join(missing, ", "))
	}
	return bound, nil
}

// prepare resizes inputs whose shape differs from what the interpreter holds
// and reallocates when anything changed.
func (r *Runner) prepare(s *slot, bound []Input) error {
	for i, in := range bound {
		if slices.Equal(s.shapes[i], in.Shape) {
			continue
		}
		if err := s.in.ResizeInput(i, in.Shape); err != nil {
			return err
		}
		s.shapes[i] = slices.Clone(in.Shape)
		s.needsAlloc = true
	}
	if !s.needsAlloc {
		return nil
	}
	if err := s.in.AllocateTensors(); err != nil {
		return err
	}
	s.needsAlloc = false
	return nil
}

// Close waits for in-flight requests, then closes the interpreters, their
// delegates and finally the model.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		if r.pool != nil {
			r.pool.drain()
		}
		r.closeErr = r.closeSlots()
		r.log.Debug("runner closed")
	})
	return r.closeErr
}

func (r *Runner) closeSlots() error {
	var errs []error
	for _, s := range r.slots {
		if s != nil {
			errs = append(errs, s.close())
		}
	}
	errs = append(errs, r.model.Close())
	return errors.Join(errs...)
}
