package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samcharles93/tflite/internal/version"
	"github.com/samcharles93/tflite/pkg/tflite"
	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := version.Resolve()
			fmt.Printf("version:    %s\n", info.Version)
			if info.Commit != "" {
				commit := info.Commit
				if info.Dirty {
					commit += " (dirty)"
				}
				fmt.Printf("commit:     %s\n", commit)
			}
			if info.BuildTime != "" {
				fmt.Printf("build time: %s\n", info.BuildTime)
			}
			if !tflite.Available() {
				fmt.Println("engine:     unavailable (built without the tflite tag)")
				return nil
			}
			fmt.Printf("engine:     %s\n", tflite.Version())
			d := tflite.EngineDelegateDefaults()
			fmt.Printf("xnnpack:    threads=%d flags=%s\n", d.NumThreads, strings.Join(d.Flags.Names(), ","))
			return nil
		},
	}
}
