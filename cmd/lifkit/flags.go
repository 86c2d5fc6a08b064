package main

import (
	"github.com/samcharles93/lifkit/internal/api"
	"github.com/urfave/cli/v3"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	logFormat  string
	debug      bool

	// config is the file loaded by the root command.
	config Config
)

func globalFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       configPath(),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "directory holding containers",
			Sources:     cli.EnvVars(api.EnvDataDir),
			Destination: &dataDir,
		},
	}, loggingFlags()...)
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
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

func fileFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "container path, or a name under --data-dir",
		Destination: dst,
	}
}

func squeezeFlag(dst *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "squeeze",
		Usage:       "drop size-1 axes outside the two innermost",
		Value:       true,
		Destination: dst,
	}
}
