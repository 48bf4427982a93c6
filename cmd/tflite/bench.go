package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/internal/runner"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func benchCmd() *cli.Command {
	var (
		warmupRuns  int
		benchRuns   int
		concurrency int
		inputPath   string
	)

	flags := append([]cli.Flag{}, runtimeFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:        "warmup",
			Usage:       "number of warmup invokes per interpreter",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.IntFlag{
			Name:        "runs",
			Usage:       "number of timed invokes",
			Value:       50,
			Destination: &benchRuns,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Aliases:     []string{"c"},
			Usage:       "concurrent callers (defaults to --interpreters)",
			Destination: &concurrency,
		},
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "JSON request file; zero inputs when empty",
			Destination: &inputPath,
		},
	)

	return &cli.Command{
		Name:   "bench",
		Usage:  "Measure invoke latency",
		Before: setup,
		Flags:  flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig)

			if benchRuns < 1 {
				return cli.Exit("error: --runs must be at least 1", 1)
			}
			path, err := resolveModelPath("bench", modelPath, modelsPath, os.Stdin, os.Stderr)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
			}
			req, err := readRequest(inputPath, os.Stdin)
			if err != nil {
				return err
			}

			cfg, err := runnerConfig(path, log)
			if err != nil {
				return err
			}
			loadStart := time.Now()
			r, err := runner.New(ctx, cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			defer func() { _ = r.Close() }()
			loadDuration := time.Since(loadStart)

			inputs := r.ZeroInputs()
			if req != nil {
				if inputs, err = req.RunnerInputs(r.Info()); err != nil {
					return err
				}
			}
			if concurrency < 1 {
				concurrency = r.Info().Interpreters
			}

			fmt.Printf("Model:        %s\n", path)
			fmt.Printf("Engine:       %s\n", r.Info().EngineVersion)
			fmt.Printf("Delegate:     %s\n", orNone(r.Info().Delegate))
			fmt.Printf("CPUs:         %d\n", runtime.NumCPU())
			fmt.Printf("Interpreters: %d\n", r.Info().Interpreters)
			fmt.Printf("Threads:      %d\n", threads)
			fmt.Printf("Concurrency:  %d\n", concurrency)
			fmt.Printf("Load:         %s\n", loadDuration.Round(time.Microsecond))
			fmt.Println()

			for i := range warmupRuns * r.Info().Interpreters {
				log.Debug("warmup run", "run", i+1)
				if _, err := r.Predict(ctx, inputs, runner.Options{}); err != nil {
					return cli.Exit(fmt.Sprintf("error: warmup run %d: %v", i+1, err), 1)
				}
			}

			start := time.Now()
			samples, err := runBench(ctx, r, inputs, benchRuns, concurrency)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: benchmark: %v", err), 1)
			}
			wall := time.Since(start)

			stats := summarize(samples)
			printStats(os.Stdout, stats)
			fmt.Printf("\nThroughput: %.1f invokes/s over %s\n",
				float64(len(samples))/wall.Seconds(), wall.Round(time.Millisecond))
			return nil
		},
	}
}

// runBench performs runs invokes split across concurrency callers and
// returns the per-invoke latencies.
func runBench(ctx context.Context, r *runner.Runner, inputs []runner.Input, runs, concurrency int) ([]time.Duration, error) {
	var (
		mu      sync.Mutex
		samples = make([]time.Duration, 0, runs)
	)
	next := make(chan struct{}, runs)
	for range runs {
		next <- struct{}{}
	}
	close(next)

	g, gctx := errgroup.WithContext(ctx)
	for range concurrency {
		g.Go(func() error {
			for range next {
				res, err := r.Predict(gctx, inputs, runner.Options{})
				if err != nil {
					return err
				}
				mu.Lock()
				samples = append(samples, res.Invoke)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

type benchStats struct {
	Count          int
	Min, Mean, Max time.Duration
	P50, P90, P99  time.Duration
}

func summarize(samples []time.Duration) benchStats {
	if len(samples) == 0 {
		return benchStats{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return benchStats{
		Count: len(sorted),
		Min:   sorted[0],
		Mean:  sum / time.Duration(len(sorted)),
		Max:   sorted[len(sorted)-1],
		P50:   percentile(sorted, 50),
		P90:   percentile(sorted, 90),
		P99:   percentile(sorted, 99),
	}
}

// percentile uses the nearest-rank method on sorted samples.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func printStats(w io.Writer, s benchStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"RUNS", "MIN", "MEAN", "P50", "P90", "P99", "MAX"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.Append([]string{
		fmt.Sprint(s.Count),
		fmtLatency(s.Min),
		fmtLatency(s.Mean),
		fmtLatency(s.P50),
		fmtLatency(s.P90),
		fmtLatency(s.P99),
		fmtLatency(s.Max),
	})
	table.Render()
}

func fmtLatency(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
