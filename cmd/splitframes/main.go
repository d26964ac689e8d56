// splitframes cuts half-frame scans into their two exposures from the
// command line.
//
// Usage: splitframes [flags] <file|dir>...
//
// Directories are scanned without recursion. Each scan yields
// <name>_left.jpg and <name>_right.jpg in -out (or inside -zip).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"halfframe/internal/batch"
	"halfframe/internal/config"
	"halfframe/internal/frame"
	"halfframe/internal/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

type options struct {
	out         string
	zipPath     string
	rotateLeft  int
	rotateRight int
	only        string
	configPath  string
	overwrite   bool
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("splitframes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.out, "out", ".", "output directory")
	fs.StringVar(&o.zipPath, "zip", "", "write a zip archive instead of loose files")
	fs.IntVar(&o.rotateLeft, "rotate-left", 0, "clockwise rotation for left halves (multiple of 90)")
	fs.IntVar(&o.rotateRight, "rotate-right", 0, "clockwise rotation for right halves (multiple of 90)")
	fs.StringVar(&o.only, "only", "", "export only the left or right half")
	fs.StringVar(&o.configPath, "config", "", "YAML or TOML config file")
	fs.BoolVar(&o.overwrite, "overwrite", false, "replace existing output files")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: splitframes [flags] <file|dir>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return o, nil, fmt.Errorf("no inputs")
	}
	if o.rotateLeft%90 != 0 || o.rotateRight%90 != 0 {
		return o, nil, fmt.Errorf("rotations must be multiples of 90")
	}
	if o.only != "" {
		if _, ok := frame.ParseSide(o.only); !ok {
			return o, nil, fmt.Errorf("-only must be left or right, got %q", o.only)
		}
	}
	return o, fs.Args(), nil
}

// collect expands directories (one level) into image sources, keeping
// argument order and sorted directory order.
func collect(args []string) ([]batch.Source, error) {
	var out []batch.Source
	for _, arg := range args {
		p := filepath.Clean(arg)
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, batch.FileSource(p))
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if src := batch.FileSource(filepath.Join(p, e.Name())); batch.IsImage(src.ContentType) {
				out = append(out, src)
			}
		}
	}
	return out, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, inputs, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "splitframes: %v\n", err)
		return 1
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "splitframes: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	obs := batch.LogObserver{Logger: logger}

	sources, err := collect(inputs)
	if err != nil {
		fmt.Fprintf(stderr, "splitframes: %v\n", err)
		return 1
	}

	reg := registry.New()
	im := &batch.Importer{
		Splitter:  cfg.Splitter(),
		Registry:  reg,
		GroupSize: cfg.Import.GroupSize,
		Observer:  obs,
	}
	imp, err := im.Run(ctx, sources)
	if err != nil {
		fmt.Fprintf(stderr, "splitframes: %v\n", err)
		return 1
	}
	if reg.Len() == 0 {
		if imp.Failed > 0 {
			fmt.Fprintf(stderr, "splitframes: none of %d files could be read\n", imp.Failed)
			return 1
		}
		return 0
	}

	for i := 0; i < reg.Len(); i++ {
		for _, side := range frame.Sides {
			if o.only != "" && o.only != side.String() {
				continue
			}
			rot := o.rotateLeft
			if side == frame.Right {
				rot = o.rotateRight
			}
			if _, err := reg.ToggleSelected(i, side); err != nil {
				fmt.Fprintf(stderr, "splitframes: %v\n", err)
				return 1
			}
			if err := reg.SetRotation(i, side, rot); err != nil {
				fmt.Fprintf(stderr, "splitframes: %v\n", err)
				return 1
			}
		}
	}

	var sink batch.Sink = batch.DirSink{Dir: o.out, Overwrite: o.overwrite}
	var zs *batch.ZipSink
	if o.zipPath != "" {
		f, err := os.Create(filepath.Clean(o.zipPath))
		if err != nil {
			fmt.Fprintf(stderr, "splitframes: %v\n", err)
			return 1
		}
		defer func() {
			if cErr := f.Close(); cErr != nil {
				fmt.Fprintf(stderr, "close %s: %v\n", o.zipPath, cErr)
			}
		}()
		zs = batch.NewZipSink(f)
		sink = zs
	}

	ex := &batch.Exporter{
		Registry: reg,
		Encoder:  cfg.Encoder(),
		Pause:    cfg.ExportPause(),
		Observer: obs,
	}
	res, err := ex.Run(ctx, sink)
	if err != nil {
		fmt.Fprintf(stderr, "splitframes: %v\n", err)
		return 1
	}
	if zs != nil {
		if err := zs.Close(); err != nil {
			fmt.Fprintf(stderr, "splitframes: %v\n", err)
			return 1
		}
	}

	for _, name := range res.Names {
		if o.zipPath != "" {
			fmt.Fprintf(stdout, "%s:%s\n", o.zipPath, name)
		} else {
			fmt.Fprintln(stdout, filepath.Join(o.out, name))
		}
	}
	if res.Exported == 0 {
		fmt.Fprintf(stderr, "splitframes: no files written (%d failed)\n", res.Failed)
		return 1
	}
	return 0
}
