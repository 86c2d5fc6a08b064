package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the lifkit configuration file (~/.config/lifkit/config.yaml).
// Pointer fields distinguish "not set" from false.
type Config struct {
	DataDir string `yaml:"data_dir"`

	// Reading
	Squeeze   *bool  `yaml:"squeeze"`
	RGB       *bool  `yaml:"rgb"`
	MemmapDir string `yaml:"memmap_dir"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lifkit", "config.yaml")
}

// applyGlobalConfig applies config file defaults to root command variables
// when the corresponding CLI flag was not explicitly set.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.DataDir != "" && !c.IsSet("data-dir") {
		dataDir = cfg.DataDir
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyReadConfig applies config file defaults to read command variables.
func applyReadConfig(c *cli.Command, cfg Config, squeeze, rgb *bool, out *string) {
	if cfg.Squeeze != nil && !c.IsSet("squeeze") {
		*squeeze = *cfg.Squeeze
	}
	if cfg.RGB != nil && !c.IsSet("rgb") {
		*rgb = *cfg.RGB
	}
	if cfg.MemmapDir != "" && !c.IsSet("out") {
		*out = "memmap:" + cfg.MemmapDir
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr, root *string, squeeze *bool) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if *root == "" && !c.IsSet("root") {
		*root = dataDir
	}
	if cfg.Squeeze != nil && !c.IsSet("squeeze") {
		*squeeze = *cfg.Squeeze
	}
}

// LoadConfigFrom reads path. A missing file yields a zero Config.
func LoadConfigFrom(path string) (Config, error) {
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
