package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/samcharles93/tflite/internal/api"
	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/internal/runner"
	"github.com/urfave/cli/v3"
)

func runCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
		dequantize bool
		compact    bool
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Invoke a model once and print its outputs as JSON",
		Before: setup,
		Flags: append(append(commonModelFlags(), delegateFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       `JSON request file ({"inputs":[{"name":..., "data":[...]}]}), "-" for stdin; zero inputs when empty`,
				Destination: &inputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write outputs to this file instead of stdout",
				Destination: &outputPath,
			},
			&cli.BoolFlag{
				Name:        "dequantize",
				Usage:       "add dequantized values for quantized outputs",
				Destination: &dequantize,
			},
			&cli.BoolFlag{
				Name:        "compact",
				Usage:       "print JSON on one line",
				Destination: &compact,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig)
			interpreters = 1

			path, err := resolveModelPath("run", modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			req, err := readRequest(inputPath, os.Stdin)
			if err != nil {
				return err
			}

			cfg, err := runnerConfig(path, log)
			if err != nil {
				return err
			}
			r, err := runner.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			inputs := r.ZeroInputs()
			if req != nil {
				if inputs, err = req.RunnerInputs(r.Info()); err != nil {
					return err
				}
				dequantize = dequantize || req.Dequantize
			} else {
				log.Warn("no --input given, invoking with zero inputs")
			}

			res, err := r.Predict(ctx, inputs, runner.Options{Dequantize: dequantize})
			if err != nil {
				return err
			}
			log.Info("invoke complete", "elapsed", res.Invoke)

			var out io.Writer = os.Stdout
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			return writeResult(out, res, !compact)
		},
	}
}

// readRequest loads an invoke request from path, or stdin for "-". An empty
// path returns nil.
func readRequest(path string, stdin io.Reader) (*api.InvokeRequest, error) {
	var r io.Reader
	switch path {
	case "":
		return nil, nil
	case "-":
		r = stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var req api.InvokeRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("%s: inputs is required", path)
	}
	return &req, nil
}

func writeResult(w io.Writer, res *runner.Result, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
