package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samcharles93/lifkit/internal/logger"
	"github.com/samcharles93/lifkit/pkg/lif"
	"github.com/urfave/cli/v3"
)

type blockJSON struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

type fileJSON struct {
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	LOF       bool            `json:"lof"`
	Reference bool            `json:"reference"`
	Datetime  *time.Time      `json:"datetime,omitempty"`
	Blocks    []blockJSON     `json:"blocks,omitempty"`
	Series    []lif.ImageInfo `json:"series,omitempty"`
	XML       string          `json:"xml,omitempty"`
}

func infoCmd() *cli.Command {
	var (
		file       string
		showBlocks bool
		showSeries bool
		showAttrs  bool
		showXML    bool
		asJSON     bool
		squeeze    bool
	)

	return &cli.Command{
		Name:  "info",
		Usage: "Describe a container: blocks, series and metadata",
		Flags: []cli.Flag{
			fileFlag(&file),
			squeezeFlag(&squeeze),
			&cli.BoolFlag{Name: "blocks", Usage: "list the block directory", Destination: &showBlocks},
			&cli.BoolFlag{Name: "series", Usage: "list the image series", Value: true, Destination: &showSeries},
			&cli.BoolFlag{Name: "attrs", Usage: "include coordinates, attributes and timestamps", Destination: &showAttrs},
			&cli.BoolFlag{Name: "xml", Usage: "print the XML descriptor", Destination: &showXML},
			&cli.BoolFlag{Name: "json", Usage: "emit JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if config.Squeeze != nil && !cmd.IsSet("squeeze") {
				squeeze = *config.Squeeze
			}
			path, err := resolveContainerPath(file, dataDir)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)
			f, err := lif.Open(path, lif.WithSqueeze(squeeze), lif.WithLogger(log))
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			out := describe(f, showBlocks, showSeries, showAttrs, showXML)
			w := cmd.Root().Writer
			if asJSON {
				b, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "%s\n", b)
				return err
			}
			return printInfo(w, out)
		},
	}
}

func describe(f *lif.File, blocks, series, attrs, xml bool) fileJSON {
	out := fileJSON{
		Name:      f.Name(),
		Version:   f.Version(),
		LOF:       f.IsLOF(),
		Reference: f.IsReference(),
	}
	if dt := f.Datetime(); !dt.IsZero() {
		out.Datetime = &dt
	}
	if blocks {
		for _, b := range f.Blocks() {
			out.Blocks = append(out.Blocks, blockJSON{
				ID:     b.ID,
				Kind:   b.Kind.String(),
				Offset: b.Offset,
				Size:   b.Size,
			})
		}
	}
	if series {
		for _, im := range f.Series().All() {
			out.Series = append(out.Series, im.Info(attrs))
		}
	}
	if xml {
		out.XML = f.XMLHeader()
	}
	return out
}

func printInfo(w io.Writer, info fileJSON) error {
	_, _ = fmt.Fprintf(w, "file:      %s\n", info.Name)
	_, _ = fmt.Fprintf(w, "version:   %d\n", info.Version)
	switch {
	case info.LOF:
		_, _ = fmt.Fprintln(w, "kind:      object file")
	case info.Reference:
		_, _ = fmt.Fprintln(w, "kind:      reference file")
	default:
		_, _ = fmt.Fprintln(w, "kind:      container")
	}
	if info.Datetime != nil {
		_, _ = fmt.Fprintf(w, "datetime:  %s\n", info.Datetime.Format(time.RFC3339))
	}
	if len(info.Blocks) > 0 {
		_, _ = fmt.Fprintf(w, "\nblocks (%d):\n", len(info.Blocks))
		for _, b := range info.Blocks {
			_, _ = fmt.Fprintf(w, "  %-8s %-24s offset=%d size=%d\n", b.Kind, b.ID, b.Offset, b.Size)
		}
	}
	if len(info.Series) > 0 {
		_, _ = fmt.Fprintf(w, "\nseries (%d):\n", len(info.Series))
		for _, s := range info.Series {
			if err := printSeries(w, s); err != nil {
				return err
			}
		}
	}
	if info.XML != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", info.XML)
	}
	return nil
}

func printSeries(w io.Writer, s lif.ImageInfo) error {
	shape := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		shape[i] = fmt.Sprintf("%s:%d", d, s.Shape[i])
	}
	line := fmt.Sprintf("  [%d] %s  %s %s", s.Index, s.Path, strings.Join(shape, " "), s.DType)
	if s.Synthetic {
		line += " (folded)"
	}
	if s.Error != "" {
		line += "  error: " + s.Error
	}
	_, _ = fmt.Fprintln(w, line)
	if len(s.Attrs) == 0 && len(s.Coords) == 0 {
		return nil
	}
	b, err := json.MarshalIndent(map[string]any{"coords": s.Coords, "attrs": s.Attrs}, "      ", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "      %s\n", b)
	return err
}
