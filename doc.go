// Package bokeh exports web-rendered visualization layouts to static PNG or
// SVG files using headless Chrome.
//
// # Quick Start
//
// Create an exporter, export a layout, and close when done:
//
//	exp := bokeh.New()
//	defer exp.Close()
//
//	layout := &bokeh.Document{HTML: savedPage}
//	path, err := exp.ExportPNG(ctx, layout, bokeh.Request{Filename: "plot.png"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("wrote", path)
//
// ExportPNG and ExportSVGs write files and return absolute paths. The
// lower-level ScreenshotPNG and SVGs methods return the in-memory image or
// SVG markup strings instead.
//
// # Export Pipeline
//
// Every export follows the same sequence:
//
//  1. Render the layout to a standalone HTML page.
//  2. Write the page to a temporary file (removed on all exit paths).
//  3. Load the file in a headless Chrome page via go-rod.
//  4. Wait for BokehJS to initialize, then for the document's idle signal.
//  5. Capture a screenshot or serialize the page's SVG nodes.
//
// A layout that never loads BokehJS fails the export. A layout that loads
// but never signals render completion is exported in its current state with
// a warning, since partial rendering is suspicious but not fatal. Browser
// console warnings and errors are surfaced through the configured logger.
//
// # Configuration
//
// Use functional options to customize the exporter:
//
//	exp := bokeh.New(
//	    bokeh.WithTimeout(15 * time.Second),
//	    bokeh.WithLogger(logger),
//	    bokeh.WithBrowserBin("/usr/bin/chromium"),
//	)
//
// Per-export options are passed via Request:
//
//	path, err := exp.ExportPNG(ctx, plot, bokeh.Request{
//	    Filename: "out/plot.png",
//	    Width:    800,
//	    Height:   600,
//	})
//
// Width and height apply only to layouts implementing Sizable (such as Plot);
// for other layouts they are ignored with a warning.
//
// # Parallel Processing
//
// For batch export, use ExporterPool to manage multiple browser instances:
//
//	pool := bokeh.NewExporterPool(4)
//	defer pool.Close()
//
//	exp := pool.Acquire()
//	defer pool.Release(exp)
//	path, err := exp.ExportPNG(ctx, layout, bokeh.Request{})
//
// # Browser Requirements
//
// Exporting requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 or use
// WithNoSandbox to disable the Chrome sandbox. Use ROD_BROWSER_BIN or
// WithBrowserBin to point at a pre-installed binary.
package bokeh
