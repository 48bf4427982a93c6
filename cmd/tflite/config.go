package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/internal/runner"
	"github.com/samcharles93/tflite/pkg/tflite"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfig = "TFLITE_CONFIG"

// Config represents the configuration file (~/.config/tflite/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Model     string `yaml:"model"`
	ModelsDir string `yaml:"models_dir"`

	Threads      *int  `yaml:"threads"`
	Interpreters *int  `yaml:"interpreters"`
	Mmap         *bool `yaml:"mmap"`

	XNNPack XNNPackConfig `yaml:"xnnpack"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

type XNNPackConfig struct {
	Enabled           *bool    `yaml:"enabled"`
	Threads           *int     `yaml:"threads"`
	Flags             []string `yaml:"flags"`
	WeightCacheFile   string   `yaml:"weight_cache_file"`
	HandleVariableOps *bool    `yaml:"handle_variable_ops"`
}

// fileConfig is loaded once per invocation by setup.
var fileConfig Config

func configPath(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(envConfig)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tflite", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config;
// a file that does not parse is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// setup loads the config file and installs the configured logger in the
// command context. Every subcommand runs it before its action.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configPath(configFile))
	if err != nil {
		return ctx, err
	}
	fileConfig = cfg
	applyLoggingConfig(cmd, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.Open(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyModelConfig applies config file defaults to the model, pool and
// delegate flags that were not set on the command line.
func applyModelConfig(c *cli.Command, cfg Config) {
	if cfg.Model != "" && !c.IsSet("model") {
		modelPath = cfg.Model
	}
	if cfg.ModelsDir != "" && !c.IsSet("models-path") {
		modelsPath = cfg.ModelsDir
	}
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
	if cfg.Interpreters != nil && !c.IsSet("interpreters") {
		interpreters = *cfg.Interpreters
	}
	if cfg.Mmap != nil && !c.IsSet("mmap") {
		useMmap = *cfg.Mmap
	}
	x := cfg.XNNPack
	if x.Enabled != nil && !c.IsSet("xnnpack") {
		xnnpack = *x.Enabled
	}
	if x.Threads != nil && !c.IsSet("xnnpack-threads") {
		xnnpackThreads = *x.Threads
	}
	if len(x.Flags) > 0 && !c.IsSet("xnnpack-flag") {
		xnnpackFlags = x.Flags
	}
	if x.WeightCacheFile != "" && !c.IsSet("weight-cache") {
		weightCacheFile = x.WeightCacheFile
	}
	if x.HandleVariableOps != nil && !c.IsSet("xnnpack-variable-ops") {
		variableOps = *x.HandleVariableOps
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyModelConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// delegateOptions builds XNNPACK options from the delegate flags, or nil
// when the delegate is disabled.
func delegateOptions() (*tflite.DelegateOptions, error) {
	if !xnnpack {
		return nil, nil
	}
	opts := tflite.DefaultDelegateOptions()
	opts.NumThreads = xnnpackThreads
	opts.WeightCacheFilePath = weightCacheFile
	opts.HandleVariableOps = variableOps
	if len(xnnpackFlags) > 0 {
		opts.Flags = 0
		for _, name := range xnnpackFlags {
			f, err := tflite.ParseXNNPackFlag(name)
			if err != nil {
				return nil, err
			}
			opts.Flags |= f
		}
	}
	return &opts, nil
}

// runnerConfig assembles a runner.Config for path from the current flag
// values.
func runnerConfig(path string, log logger.Logger) (runner.Config, error) {
	x, err := delegateOptions()
	if err != nil {
		return runner.Config{}, err
	}
	return runner.Config{
		ModelPath:    path,
		Mmap:         useMmap,
		Threads:      threads,
		Interpreters: interpreters,
		XNNPack:      x,
		Logger:       log,
	}, nil
}
