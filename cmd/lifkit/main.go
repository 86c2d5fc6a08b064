package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samcharles93/lifkit/internal/logger"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "lifkit",
		Usage: "Inspect and extract images from Leica LIF, LOF and XLIF containers",
		Flags: globalFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfigFrom(configFile)
			if err != nil {
				return ctx, err
			}
			applyGlobalConfig(cmd, cfg)
			config = cfg

			level := logger.ParseLevel(logLevel)
			if debug {
				level = logger.ParseLevel("debug")
			}
			w := cmd.Root().ErrWriter
			if w == nil {
				w = os.Stderr
			}
			log, err := logger.Build(w, logFormat, level)
			if err != nil {
				return ctx, err
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			infoCmd(),
			readCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}
