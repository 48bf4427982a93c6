package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/internal/runner"
	"github.com/urfave/cli/v3"
)

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:   "inspect",
		Usage:  "Show the input and output tensors of a .tflite model",
		Before: setup,
		Flags: append(append(commonModelFlags(), delegateFlags()...),
			&cli.BoolFlag{Name: "json", Usage: "print the description as JSON", Destination: &asJSON},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig)
			interpreters = 1

			path, err := resolveModelPath("inspect", modelPath, modelsPath, os.Stdin, os.Stderr)
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

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(r.Info())
			}
			printModelInfo(os.Stdout, r.Info())
			return nil
		},
	}
}

func printModelInfo(w io.Writer, info runner.ModelInfo) {
	_, _ = fmt.Fprintln(w, "  Model")
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	rows := [][]string{
		{"", "source", info.Source},
		{"", "engine", info.EngineVersion},
	}
	if info.Delegate != "" {
		rows = append(rows, []string{"", "delegate", info.Delegate})
	}
	table.AppendBulk(rows)
	table.Render()
	_, _ = fmt.Fprintln(w)

	printTensors(w, "Inputs", info.Inputs)
	printTensors(w, "Outputs", info.Outputs)
}

func printTensors(w io.Writer, header string, tensors []runner.TensorInfo) {
	_, _ = fmt.Fprintln(w, " ", header)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"INDEX", "NAME", "TYPE", "SHAPE", "BYTES", "QUANTIZATION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	data := make([][]string, 0, len(tensors))
	for _, t := range tensors {
		quant := "-"
		if q := t.Quantization; q != nil {
			quant = fmt.Sprintf("scale=%g zero_point=%d", q.Scale, q.ZeroPoint)
		}
		data = append(data, []string{
			strconv.Itoa(t.Index),
			t.Name,
			t.Type,
			formatDims(t.Shape),
			strconv.Itoa(t.ByteSize),
			quant,
		})
	}
	table.AppendBulk(data)
	table.Render()
	_, _ = fmt.Fprintln(w)
}

func formatDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
