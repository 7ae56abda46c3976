package bokeh

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/iostreamatlab/bokeh/internal/fileutil"
)

// Exporter drives a headless browser session to turn layouts into static
// images. Create with New(), export with ExportPNG/ExportSVGs, and Close()
// when done to release the browser.
type Exporter struct {
	cfg    exporterConfig
	driver driver
}

// New creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithLogger).
func New(opts ...Option) *Exporter {
	e := &Exporter{
		cfg: exporterConfig{
			timeout: DefaultTimeout,
			logger:  log.Default(),
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	// Create browser driver if not injected (e.g., by tests)
	if e.driver == nil {
		e.driver = newRodDriver(e.cfg)
	}

	return e
}

// ExportPNG renders the layout and writes it as a PNG file.
// When req.Filename is empty the name is derived from the executable name.
// Returns the absolute path of the written file.
func (e *Exporter) ExportPNG(ctx context.Context, layout Layout, req Request) (string, error) {
	img, err := e.ScreenshotPNG(ctx, layout, req)
	if err != nil {
		return "", err
	}

	filename := req.Filename
	if filename == "" {
		filename, err = defaultFilename("png")
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
	}

	if err := savePNG(img, filename); err != nil {
		return "", err
	}

	return filepath.Abs(filename)
}

// ExportSVGs renders the layout and writes each SVG-enabled plot to its own
// file: name.svg, name_1.svg, and so on. A layout with no SVG output writes
// nothing, logs a warning, and returns no paths and no error.
// Returns the absolute paths of the written files.
func (e *Exporter) ExportSVGs(ctx context.Context, layout Layout, req Request) ([]string, error) {
	svgs, err := e.SVGs(ctx, layout, req)
	if err != nil {
		return nil, err
	}

	if len(svgs) == 0 {
		e.cfg.logger.Warn("no SVG plots were found in the layout")
		return nil, nil
	}

	filename := req.Filename
	if filename == "" {
		filename, err = defaultFilename("svg")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
	}

	paths := make([]string, 0, len(svgs))
	for i, svg := range svgs {
		path := filename
		if i > 0 {
			path = numberedFilename(filename, i)
		}

		// #nosec G306 -- exported images are intended to be readable
		if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		paths = append(paths, abs)
	}

	return paths, nil
}

// ScreenshotPNG renders the layout and returns the captured screenshot as an
// RGBA image without writing any output file.
func (e *Exporter) ScreenshotPNG(ctx context.Context, layout Layout, req Request) (image.Image, error) {
	var data []byte
	err := e.withLayoutFile(ctx, layout, req, func(htmlPath string) error {
		var err error
		data, err = e.driver.Screenshot(ctx, htmlPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	return decodeScreenshot(data)
}

// SVGs renders the layout and returns the serialized SVG markup of each
// SVG-enabled plot without writing any output file.
func (e *Exporter) SVGs(ctx context.Context, layout Layout, req Request) ([]string, error) {
	var svgs []string
	err := e.withLayoutFile(ctx, layout, req, func(htmlPath string) error {
		var err error
		svgs, err = e.driver.SVGs(ctx, htmlPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	return svgs, nil
}

// Close releases resources (the headless browser).
func (e *Exporter) Close() error {
	if e.driver != nil {
		return e.driver.Close()
	}
	return nil
}

// withLayoutFile renders the layout HTML into a scoped temporary file and
// runs fn against it. The file is removed on every exit path.
func (e *Exporter) withLayoutFile(ctx context.Context, layout Layout, req Request, fn func(htmlPath string) error) error {
	if layout == nil {
		return ErrNilLayout
	}
	if err := req.Validate(); err != nil {
		return err
	}

	page, err := renderLayoutHTML(layout, req, e.cfg.logger)
	if err != nil {
		return err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(page, "html")
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(tmpPath)
}
