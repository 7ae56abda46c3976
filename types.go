package bokeh

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Layout is a renderable visualization document or widget tree.
type Layout interface {
	// LayoutHTML returns a standalone HTML page that renders the layout and
	// raises the render-complete signal once asynchronous drawing finishes.
	LayoutHTML() (string, error)
}

// Sizable is implemented by layouts whose pixel dimensions can be overridden
// for the duration of an export.
type Sizable interface {
	// Resize sets the layout's dimensions in pixels. A zero value keeps the
	// current dimension. The returned func restores the previous dimensions.
	Resize(width, height int) (restore func())
}

// Request contains per-export parameters.
type Request struct {
	Filename string // output path; derived from the executable name when empty
	Width    int    // desired width in pixels, Sizable layouts only
	Height   int    // desired height in pixels, Sizable layouts only
}

// Validate checks that the request parameters are usable.
func (r Request) Validate() error {
	if r.Width < 0 {
		return fmt.Errorf("%w: width %d", ErrInvalidSize, r.Width)
	}
	if r.Height < 0 {
		return fmt.Errorf("%w: height %d", ErrInvalidSize, r.Height)
	}
	return nil
}

// DefaultTimeout bounds both wait phases (library load, render complete).
const DefaultTimeout = 5 * time.Second

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	timeout    time.Duration
	logger     *log.Logger
	browserBin string
	noSandbox  bool
}

// WithTimeout sets the wait timeout for both render phases.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("bokeh: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithLogger sets the logger used for warnings and surfaced browser console
// messages. Panics if l is nil.
func WithLogger(l *log.Logger) Option {
	if l == nil {
		panic("bokeh: WithLogger logger must not be nil")
	}
	return func(e *Exporter) {
		e.cfg.logger = l
	}
}

// WithBrowserBin points the launcher at a pre-installed Chrome/Chromium
// binary instead of the rod-managed download.
func WithBrowserBin(path string) Option {
	return func(e *Exporter) {
		e.cfg.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox. Required in most containers.
func WithNoSandbox(disable bool) Option {
	return func(e *Exporter) {
		e.cfg.noSandbox = disable
	}
}
