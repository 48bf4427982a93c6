package main

import "github.com/urfave/cli/v3"

var (
	configFile      string
	modelPath       string
	modelsPath      string
	threads         int
	interpreters    int
	useMmap         bool
	xnnpack         bool
	xnnpackThreads  int
	xnnpackFlags    []string
	weightCacheFile string
	variableOps     bool
	logLevel        string
	logFormat       string
	debug           bool
)

func rootFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $" + envConfig + " or the user config dir)",
			Destination: &configFile,
		},
	}, loggingFlags()...)
}

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to .tflite file",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "models-path",
			Aliases:     []string{"path"},
			Usage:       "path to directory containing .tflite models",
			Destination: &modelsPath,
		},
		&cli.IntFlag{
			Name:        "threads",
			Aliases:     []string{"t"},
			Usage:       "threads per interpreter (0 = engine default, -1 = all)",
			Destination: &threads,
		},
		&cli.BoolFlag{
			Name:        "mmap",
			Usage:       "memory-map the model instead of copying it",
			Destination: &useMmap,
		},
	}
}

func delegateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "xnnpack",
			Usage:       "run supported operators on the XNNPACK delegate",
			Destination: &xnnpack,
		},
		&cli.IntFlag{
			Name:        "xnnpack-threads",
			Usage:       "XNNPACK thread pool size",
			Value:       1,
			Destination: &xnnpackThreads,
		},
		&cli.StringSliceFlag{
			Name:        "xnnpack-flag",
			Usage:       "XNNPACK flag (qs8, qu8, force_fp16, dynamic_fully_connected, ...); replaces the defaults",
			Destination: &xnnpackFlags,
		},
		&cli.StringFlag{
			Name:        "weight-cache",
			Usage:       "file backing the XNNPACK weight cache",
			Destination: &weightCacheFile,
		},
		&cli.BoolFlag{
			Name:        "xnnpack-variable-ops",
			Usage:       "let XNNPACK handle variable operators",
			Destination: &variableOps,
		},
	}
}

func poolFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "interpreters",
			Aliases:     []string{"n"},
			Usage:       "number of interpreters sharing the model",
			Value:       1,
			Destination: &interpreters,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func runtimeFlags() []cli.Flag {
	flags := commonModelFlags()
	flags = append(flags, poolFlags()...)
	return append(flags, delegateFlags()...)
}
