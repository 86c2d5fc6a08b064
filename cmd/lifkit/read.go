package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/samcharles93/lifkit/internal/logger"
	"github.com/samcharles93/lifkit/pkg/lif"
	"github.com/urfave/cli/v3"
)

// readMeta is written next to the raw bytes so they can be reinterpreted.
type readMeta struct {
	lif.ImageInfo
	Source string `json:"source"`
	Output string `json:"output"`
	Mapped bool   `json:"mapped"`
}

func readCmd() *cli.Command {
	var (
		file    string
		series  int64
		path    string
		out     string
		rgb     bool
		squeeze bool
		rawPath string
		metaOut string
	)

	return &cli.Command{
		Name:  "read",
		Usage: "Materialize one image and write its raw bytes",
		Flags: []cli.Flag{
			fileFlag(&file),
			squeezeFlag(&squeeze),
			&cli.Int64Flag{
				Name:        "series",
				Aliases:     []string{"s"},
				Usage:       "series index (negative counts from the end)",
				Destination: &series,
			},
			&cli.StringFlag{
				Name:        "path",
				Usage:       "image path or regular expression; overrides --series",
				Destination: &path,
			},
			&cli.StringFlag{
				Name:        "out",
				Usage:       "array storage: new, memmap, memmap:<dir> or a file path",
				Value:       "new",
				Destination: &out,
			},
			&cli.BoolFlag{
				Name:        "rgb",
				Usage:       "return samples in RGB order",
				Value:       true,
				Destination: &rgb,
			},
			&cli.StringFlag{
				Name:        "raw",
				Usage:       "write the array bytes to this file",
				Destination: &rawPath,
			},
			&cli.StringFlag{
				Name:        "meta",
				Usage:       "write image metadata as JSON to this file",
				Destination: &metaOut,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyReadConfig(cmd, config, &squeeze, &rgb, &out)
			output, err := lif.ParseOutput(out)
			if err != nil {
				return err
			}
			if rawPath == "" && metaOut == "" && !output.Persistent() {
				return errors.New("--raw, --meta or a file --out is required")
			}
			src, err := resolveContainerPath(file, dataDir)
			if err != nil {
				return err
			}

			log := logger.FromContext(ctx)
			f, err := lif.Open(src, lif.WithSqueeze(squeeze), lif.WithLogger(log))
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			sel := lif.Index(int(series))
			if path != "" {
				sel = lif.Key(path)
			}
			im, err := f.Select(sel)
			if err != nil {
				return fmt.Errorf("select %v: %w", sel, err)
			}
			arr, err := im.ReadArray(lif.WithOut(output), lif.WithRGB(rgb))
			if err != nil {
				return err
			}
			defer func() { _ = arr.Close() }()
			log.Info("image read", "path", im.Path(), "shape", arr.Shape, "dtype", arr.DType, "mapped", arr.Mapped())

			if rawPath != "" {
				if err := writeOutput(rawPath, arr.Data); err != nil {
					return err
				}
			}
			if metaOut != "" {
				meta := readMeta{
					ImageInfo: im.Info(true),
					Source:    src,
					Output:    output.String(),
					Mapped:    arr.Mapped(),
				}
				b, err := json.MarshalIndent(meta, "", "  ")
				if err != nil {
					return err
				}
				if err := writeOutput(metaOut, append(b, '\n')); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "%s %v %s %d bytes\n", im.Path(), arr.Shape, arr.DType, arr.NBytes())
			return err
		},
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
