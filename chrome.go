package bokeh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// driver abstracts the headless browser session to enable testing without Chrome.
type driver interface {
	Screenshot(ctx context.Context, htmlPath string) ([]byte, error)
	SVGs(ctx context.Context, htmlPath string) ([]string, error)
	Close() error
}

// session is the subset of a live page the render wait loop needs.
type session interface {
	Eval(js string) (gson.JSON, error)
}

// Compile-time interface checks
var (
	_ driver  = (*rodDriver)(nil)
	_ session = rodSession{}
)

// pollInterval is the fixed delay between probes of the page-side booleans.
const pollInterval = 100 * time.Millisecond

// Scripts evaluated in the exported page. BokehJS exposes its documents on
// window.Bokeh; the render-complete flag is installed by this module once the
// library is up.
const (
	libraryLoadedJS = `() => typeof Bokeh !== "undefined" && Bokeh.documents != null && Bokeh.documents.length != 0`

	installRenderFlagJS = `() => {
	window._bokeh_render_complete = false;
	const done = () => { window._bokeh_render_complete = true; };
	const doc = window.Bokeh.documents[0];
	if (doc.is_idle) done();
	else doc.idle.connect(done);
}`

	renderCompleteJS = `() => window._bokeh_render_complete === true`

	viewportSizeJS = `() => {
	const root = document.getElementsByClassName("bk-root")[0];
	if (!root || root.children.length === 0) return [0, 0];
	const rect = root.children[0].getBoundingClientRect();
	return [Math.ceil(rect.width), Math.ceil(rect.height)];
}`

	svgExtractJS = `() => {
	const roots = document.getElementsByClassName("bk-root");
	if (roots.length === 0) return [];
	const out = [];
	const svgs = roots[0].getElementsByTagName("svg");
	for (let i = 0; i < svgs.length; i++) {
		out.push(new XMLSerializer().serializeToString(svgs[i]));
	}
	return out;
}`
)

// rodDriver implements driver using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodDriver struct {
	cfg     exporterConfig
	browser *rod.Browser
}

// newRodDriver creates a rodDriver with the given configuration.
func newRodDriver(cfg exporterConfig) *rodDriver {
	return &rodDriver{cfg: cfg}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodDriver) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	bin := r.cfg.browserBin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if r.cfg.noSandbox || os.Getenv("CI") == "true" || bin != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *rodDriver) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Screenshot loads the HTML file, waits for rendering, grows the viewport to
// the layout's bounding box and captures a PNG of it.
func (r *rodDriver) Screenshot(ctx context.Context, htmlPath string) ([]byte, error) {
	var buf []byte
	err := r.withPage(ctx, htmlPath, func(page *rod.Page) error {
		r.maximizeViewport(page)

		bin, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrScreenshot, err)
		}
		buf = bin
		return nil
	})
	return buf, err
}

// SVGs loads the HTML file, waits for rendering, and returns the serialized
// <svg> nodes under the layout root. Layouts without SVG output yield an
// empty slice, not an error.
func (r *rodDriver) SVGs(ctx context.Context, htmlPath string) ([]string, error) {
	var svgs []string
	err := r.withPage(ctx, htmlPath, func(page *rod.Page) error {
		obj, err := page.Eval(svgExtractJS)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSVGExtract, err)
		}
		for _, v := range obj.Value.Arr() {
			svgs = append(svgs, v.Str())
		}
		return nil
	})
	return svgs, err
}

// withPage runs fn against a loaded, render-complete page for the given HTML
// file. Console warnings captured during the session are surfaced through
// the logger before returning.
func (r *rodDriver) withPage(ctx context.Context, htmlPath string, fn func(*rod.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.ensureBrowser(); err != nil {
		return err
	}

	// Start from a blank page so the console subscription is in place
	// before any layout script runs.
	page, err := r.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	page = page.Context(ctx)

	console := &consoleCapture{}
	console.attach(page)

	err = func() error {
		defer page.Close()

		// The context deadline wins over the configured timeout when shorter.
		timeout := r.cfg.timeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < timeout {
				timeout = remaining
			}
			if timeout <= 0 {
				return context.DeadlineExceeded
			}
		}

		if err := page.Timeout(timeout).Navigate("file://" + htmlPath); err != nil {
			return fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
		if err := page.Timeout(timeout).WaitLoad(); err != nil {
			return fmt.Errorf("%w: %v", ErrPageLoad, err)
		}

		if err := waitUntilRenderComplete(ctx, rodSession{page: page}, timeout, r.cfg.logger); err != nil {
			return err
		}
		return fn(page)
	}()

	// Closing the page ends the subscription, so by now every message the
	// session produced has been recorded.
	console.flush(r.cfg.logger)
	return err
}

// maximizeViewport grows the viewport to the layout root's bounding box so
// the screenshot covers exactly the rendered layout. Failures here degrade
// the capture but never fail the export.
func (r *rodDriver) maximizeViewport(page *rod.Page) {
	obj, err := page.Eval(viewportSizeJS)
	if err != nil {
		r.cfg.logger.Warn("could not measure the rendered layout; keeping the default viewport", "err", err)
		return
	}

	size := obj.Value.Arr()
	if len(size) < 2 {
		return
	}
	width, height := size[0].Int(), size[1].Int()
	if width <= 0 || height <= 0 {
		return
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		r.cfg.logger.Warn("could not resize the viewport to the layout", "err", err)
	}
}

// rodSession adapts a rod page to the session interface.
type rodSession struct {
	page *rod.Page
}

func (s rodSession) Eval(js string) (gson.JSON, error) {
	obj, err := s.page.Eval(js)
	if err != nil {
		return gson.JSON{}, err
	}
	return obj.Value, nil
}

// errPollTimeout reports that a polled condition never became true.
var errPollTimeout = errors.New("condition polling timed out")

// waitUntilRenderComplete blocks until the page reports a rendered document.
// The wait has two phases: BokehJS initialization, which must succeed, and
// the document idle signal, which is best-effort. A layout that loads the
// library but never goes idle is exported as-is with a warning.
func waitUntilRenderComplete(ctx context.Context, s session, timeout time.Duration, logger *log.Logger) error {
	if err := pollCondition(ctx, s, libraryLoadedJS, timeout); err != nil {
		if errors.Is(err, errPollTimeout) {
			return fmt.Errorf("%w: no document appeared within %s; something may have gone wrong", ErrLibraryLoad, timeout)
		}
		return err
	}

	if _, err := s.Eval(installRenderFlagJS); err != nil {
		return fmt.Errorf("installing render-complete flag: %w", err)
	}

	if err := pollCondition(ctx, s, renderCompleteJS, timeout); err != nil {
		if errors.Is(err, errPollTimeout) {
			logger.Warn("the layout did not signal render completion before the timeout; exporting the current state")
			return nil
		}
		return err
	}
	return nil
}

// pollCondition evaluates a boolean script at a fixed interval until it
// returns true, the timeout elapses, or the context is canceled.
func pollCondition(ctx context.Context, s session, js string, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		v, err := s.Eval(js)
		if err != nil {
			return err
		}
		if v.Bool() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errPollTimeout
		case <-tick.C:
		}
	}
}

// consoleCapture collects warning/error console messages from a page so they
// can be surfaced as export diagnostics.
type consoleCapture struct {
	mu       sync.Mutex
	messages []string
}

// attach subscribes to console events on the page. The subscription ends
// when the page closes.
func (c *consoleCapture) attach(page *rod.Page) {
	go page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		if e.Type != proto.RuntimeConsoleAPICalledTypeWarning && e.Type != proto.RuntimeConsoleAPICalledTypeError {
			return
		}
		msg := formatConsoleArgs(e.Args)
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		c.mu.Unlock()
	})()
}

// flush logs captured messages and clears the buffer.
func (c *consoleCapture) flush(logger *log.Logger) {
	c.mu.Lock()
	msgs := c.messages
	c.messages = nil
	c.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	logger.Warn("there were browser warnings and/or errors that may have affected the export")
	for _, m := range msgs {
		logger.Warn(m)
	}
}

// formatConsoleArgs renders console call arguments into a single line.
func formatConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, o := range args {
		if o == nil {
			continue
		}
		if o.Value.Nil() {
			parts = append(parts, o.Description)
		} else {
			parts = append(parts, o.Value.Str())
		}
	}
	return strings.Join(parts, " ")
}
