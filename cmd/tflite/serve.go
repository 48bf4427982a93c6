package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/samcharles93/tflite/internal/api"
	"github.com/samcharles93/tflite/internal/logger"
	"github.com/samcharles93/tflite/internal/runner"
	"github.com/samcharles93/tflite/internal/version"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	var (
		addr         string
		readTimeout  time.Duration
		queueTimeout time.Duration
	)

	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve a model over HTTP",
		Before: setup,
		Flags: append(runtimeFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.DurationFlag{
				Name:        "queue-timeout",
				Usage:       "how long a request waits for a free interpreter (0 = no limit)",
				Destination: &queueTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &addr)

			path, err := resolveModelPath("serve", modelPath, modelsPath, os.Stdin, os.Stderr)
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
			defer func() {
				if err := r.Close(); err != nil {
					log.Error("close runner", "error", err)
				}
			}()

			server := api.NewServer(r,
				api.WithLogger(log.With("component", "api")),
				api.WithQueueTimeout(queueTimeout),
			)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "model", path, "version", version.String())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
