package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/iostreamatlab/bokeh"
	"github.com/iostreamatlab/bokeh/internal/config"
	"github.com/iostreamatlab/bokeh/internal/hints"
)

// Export formats.
const (
	formatPNG = "png"
	formatSVG = "svg"
)

// exportFlags holds the per-command export flags. Values not set on the
// command line fall back to the config file.
type exportFlags struct {
	out        string
	outDir     string
	width      int
	height     int
	timeout    time.Duration
	workers    int
	browserBin string
	noSandbox  bool
}

// bindExportFlags registers the export flags on fs.
func bindExportFlags(fs *pflag.FlagSet, f *exportFlags) {
	fs.StringVarP(&f.out, "out", "o", "", "output file (single input only)")
	fs.StringVar(&f.outDir, "out-dir", "", "output directory (default: alongside each input)")
	fs.IntVar(&f.width, "width", 0, "desired layout width in pixels (resizable layouts only)")
	fs.IntVar(&f.height, "height", 0, "desired layout height in pixels (resizable layouts only)")
	fs.DurationVar(&f.timeout, "timeout", bokeh.DefaultTimeout, "wait timeout for library load and render completion")
	fs.IntVar(&f.workers, "workers", 0, "parallel browser instances (0 = auto from CPU count)")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Chromium binary to launch")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers/CI)")
}

// newExportCmd builds the png or svg subcommand.
func newExportCmd(format string, ropts *rootOptions) *cobra.Command {
	f := &exportFlags{}

	short := "Export layouts as PNG screenshots"
	if format == formatSVG {
		short = "Export each SVG-enabled plot of a layout as an SVG file"
	}

	cmd := &cobra.Command{
		Use:   format + " <layout.html> [more layouts...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, format, args, f, ropts)
		},
	}
	bindExportFlags(cmd.Flags(), f)
	return cmd
}

// runExport loads the config, merges it under the explicit flags, and fans
// the inputs out over a pool of exporters.
func runExport(cmd *cobra.Command, format string, inputs []string, f *exportFlags, ropts *rootOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(ropts.configPath)
	if err != nil {
		return err
	}
	applyConfig(cmd.Flags(), f, cfg)

	if f.out != "" && len(inputs) > 1 {
		return errors.New("--out is only valid with a single input; use --out-dir for batches")
	}

	opts := []bokeh.Option{
		bokeh.WithTimeout(f.timeout),
		bokeh.WithLogger(logger),
	}
	if f.browserBin != "" {
		opts = append(opts, bokeh.WithBrowserBin(f.browserBin))
	}
	if f.noSandbox {
		opts = append(opts, bokeh.WithNoSandbox(true))
	}

	pool := bokeh.NewExporterPool(bokeh.ResolvePoolSize(f.workers), opts...)
	defer pool.Close()
	logger.Debug("export starting", "format", format, "inputs", len(inputs), "pool", pool.Size())

	prog := newProgress(logger)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.Size())
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			exp := pool.Acquire()
			defer pool.Release(exp)
			return exportOne(gctx, exp, logger, format, input, f)
		})
	}
	if err := g.Wait(); err != nil {
		return decorate(err)
	}

	prog.done(fmt.Sprintf("Exported %d layout(s)", len(inputs)))
	return nil
}

// exportOne exports a single saved layout document.
func exportOne(ctx context.Context, exp *bokeh.Exporter, logger *log.Logger, format, input string, f *exportFlags) error {
	data, err := os.ReadFile(input) // #nosec G304 -- user-provided layout path
	if err != nil {
		return fmt.Errorf("reading layout %s: %w", input, err)
	}

	layout := &bokeh.Document{HTML: string(data)}
	req := bokeh.Request{
		Filename: outputPath(input, f.out, f.outDir, format),
		Width:    f.width,
		Height:   f.height,
	}

	switch format {
	case formatSVG:
		paths, err := exp.ExportSVGs(ctx, layout, req)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", input, err)
		}
		for _, p := range paths {
			logger.Info("wrote", "path", p)
		}
	default:
		path, err := exp.ExportPNG(ctx, layout, req)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", input, err)
		}
		logger.Info("wrote", "path", path)
	}
	return nil
}

// outputPath derives the output file for an input layout.
func outputPath(input, out, outDir, format string) string {
	if out != "" {
		return out
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "." + format
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base)
}

// loadConfig loads the explicit config path, or searches defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(nil))
		}
		return nil, err
	}
	return cfg, nil
}

// applyConfig fills flag values from the config file. Flags set explicitly
// on the command line always win.
func applyConfig(fs *pflag.FlagSet, f *exportFlags, cfg *config.Config) {
	if !fs.Changed("width") && cfg.Export.Width > 0 {
		f.width = cfg.Export.Width
	}
	if !fs.Changed("height") && cfg.Export.Height > 0 {
		f.height = cfg.Export.Height
	}
	if !fs.Changed("timeout") {
		f.timeout = cfg.Timeout(f.timeout)
	}
	if !fs.Changed("workers") && cfg.Workers > 0 {
		f.workers = cfg.Workers
	}
	if !fs.Changed("out-dir") && cfg.Output.Dir != "" {
		f.outDir = cfg.Output.Dir
	}
	if !fs.Changed("browser-bin") && cfg.Browser.Bin != "" {
		f.browserBin = cfg.Browser.Bin
	}
	if !fs.Changed("no-sandbox") && cfg.Browser.NoSandbox {
		f.noSandbox = true
	}
}

// decorate appends actionable hints to well-known failures.
func decorate(err error) error {
	switch {
	case errors.Is(err, bokeh.ErrBrowserConnect):
		return fmt.Errorf("%w%s", err, hints.ForBrowserConnect())
	case errors.Is(err, bokeh.ErrLibraryLoad):
		return fmt.Errorf("%w%s%s", err, hints.ForLibraryLoad(), hints.ForTimeout())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w%s", err, hints.ForTimeout())
	}
	return err
}
