package bokeh

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
)

// fakeDriver implements driver for testing without a browser.
// It records the HTML file it was pointed at and its content, so tests can
// verify both what was rendered and that the temp file is gone afterwards.
type fakeDriver struct {
	png      []byte
	svgs     []string
	err      error
	paths    []string
	contents []string
	closed   bool
}

func (f *fakeDriver) record(htmlPath string) {
	f.paths = append(f.paths, htmlPath)
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		data = nil
	}
	f.contents = append(f.contents, string(data))
}

func (f *fakeDriver) Screenshot(ctx context.Context, htmlPath string) ([]byte, error) {
	f.record(htmlPath)
	return f.png, f.err
}

func (f *fakeDriver) SVGs(ctx context.Context, htmlPath string) ([]string, error) {
	f.record(htmlPath)
	return f.svgs, f.err
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

// newTestExporter builds an Exporter around an injected fake driver.
func newTestExporter(d driver, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Exporter{
		cfg:    exporterConfig{timeout: DefaultTimeout, logger: logger},
		driver: d,
	}
}

// encodeTestPNG returns PNG bytes for a blank w x h image.
func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h)), imaging.PNG); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestExporter_ExportPNG(t *testing.T) {
	drv := &fakeDriver{png: encodeTestPNG(t, 4, 3)}
	exp := newTestExporter(drv, nil)

	out := filepath.Join(t.TempDir(), "plot.png")
	path, err := exp.ExportPNG(context.Background(), &Document{HTML: "<html><head></head><body>p</body></html>"}, Request{Filename: out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("opening exported PNG: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("expected 4x3 image, got %v", img.Bounds())
	}

	// Temp HTML file must be gone after the call
	if len(drv.paths) != 1 {
		t.Fatalf("expected one driver call, got %d", len(drv.paths))
	}
	if _, err := os.Stat(drv.paths[0]); !os.IsNotExist(err) {
		t.Errorf("temp file %s still exists after export", drv.paths[0])
	}

	// The rendered page carries the viewport preamble
	if !strings.Contains(drv.contents[0], "overflow: hidden") {
		t.Error("expected viewport preamble in rendered page")
	}
}

func TestExporter_ExportPNG_DriverError(t *testing.T) {
	drv := &fakeDriver{err: errors.New("browser crashed")}
	exp := newTestExporter(drv, nil)

	out := filepath.Join(t.TempDir(), "plot.png")
	_, err := exp.ExportPNG(context.Background(), &Document{HTML: "<html></html>"}, Request{Filename: out})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// Temp file cleaned on the failure path too
	if len(drv.paths) != 1 {
		t.Fatalf("expected one driver call, got %d", len(drv.paths))
	}
	if _, statErr := os.Stat(drv.paths[0]); !os.IsNotExist(statErr) {
		t.Errorf("temp file %s still exists after failed export", drv.paths[0])
	}

	// No output written
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output file %s was created despite driver failure", out)
	}
}

func TestExporter_ExportPNG_InvalidInputs(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		req     Request
		wantErr error
	}{
		{
			name:    "nil layout",
			layout:  nil,
			wantErr: ErrNilLayout,
		},
		{
			name:    "negative width",
			layout:  &Document{HTML: "<html></html>"},
			req:     Request{Width: -1},
			wantErr: ErrInvalidSize,
		},
		{
			name:    "negative height",
			layout:  &Document{HTML: "<html></html>"},
			req:     Request{Height: -10},
			wantErr: ErrInvalidSize,
		},
		{
			name:    "empty document",
			layout:  &Document{},
			wantErr: ErrLayoutHTML,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := newTestExporter(&fakeDriver{png: encodeTestPNG(t, 1, 1)}, nil)
			_, err := exp.ExportPNG(context.Background(), tt.layout, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExporter_ExportSVGs(t *testing.T) {
	drv := &fakeDriver{svgs: []string{"<svg>one</svg>", "<svg>two</svg>", "<svg>three</svg>"}}
	exp := newTestExporter(drv, nil)

	dir := t.TempDir()
	out := filepath.Join(dir, "plot.svg")
	paths, err := exp.ExportSVGs(context.Background(), &Document{HTML: "<html></html>"}, Request{Filename: out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "plot.svg"),
		filepath.Join(dir, "plot_1.svg"),
		filepath.Join(dir, "plot_2.svg"),
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d", len(want), len(paths))
	}
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q is not absolute", p)
		}
		if p != want[i] {
			t.Errorf("expected path %q, got %q", want[i], p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		if string(data) != drv.svgs[i] {
			t.Errorf("file %s content %q, want %q", p, data, drv.svgs[i])
		}
	}
}

func TestExporter_ExportSVGs_NoPlots(t *testing.T) {
	var logBuf bytes.Buffer
	drv := &fakeDriver{svgs: nil}
	exp := newTestExporter(drv, log.New(&logBuf))

	out := filepath.Join(t.TempDir(), "plot.svg")
	paths, err := exp.ExportSVGs(context.Background(), &Document{HTML: "<html></html>"}, Request{Filename: out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paths != nil {
		t.Errorf("expected no paths, got %v", paths)
	}
	if !strings.Contains(logBuf.String(), "no SVG plots") {
		t.Errorf("expected warning about missing SVG plots, log: %s", logBuf.String())
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output file %s was created for a layout without SVGs", out)
	}
}

func TestExporter_SizeIgnoredForNonSizable(t *testing.T) {
	var logBuf bytes.Buffer
	drv := &fakeDriver{png: encodeTestPNG(t, 1, 1)}
	exp := newTestExporter(drv, log.New(&logBuf))

	out := filepath.Join(t.TempDir(), "plot.png")
	_, err := exp.ExportPNG(context.Background(), &Document{HTML: "<html></html>"}, Request{Filename: out, Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(logBuf.String(), "ignored") {
		t.Errorf("expected size-ignored warning, log: %s", logBuf.String())
	}
}

func TestExporter_SizableResizedAndRestored(t *testing.T) {
	drv := &fakeDriver{png: encodeTestPNG(t, 1, 1)}
	exp := newTestExporter(drv, nil)

	plot := &Plot{DocJSON: `{"title":"t"}`, Width: 300, Height: 200}
	out := filepath.Join(t.TempDir(), "plot.png")
	_, err := exp.ExportPNG(context.Background(), plot, Request{Filename: out, Width: 800, Height: 700})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The page rendered while the override was in effect
	if !strings.Contains(drv.contents[0], "width: 800px") || !strings.Contains(drv.contents[0], "height: 700px") {
		t.Errorf("expected overridden dimensions in rendered page")
	}

	// Original dimensions restored after the export
	if plot.Width != 300 || plot.Height != 200 {
		t.Errorf("expected dimensions restored to 300x200, got %dx%d", plot.Width, plot.Height)
	}
}

func TestExporter_ScreenshotPNG(t *testing.T) {
	drv := &fakeDriver{png: encodeTestPNG(t, 7, 5)}
	exp := newTestExporter(drv, nil)

	img, err := exp.ScreenshotPNG(context.Background(), &Document{HTML: "<html></html>"}, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 7 || img.Bounds().Dy() != 5 {
		t.Errorf("expected 7x5 image, got %v", img.Bounds())
	}
}

func TestExporter_SVGs(t *testing.T) {
	drv := &fakeDriver{svgs: []string{"<svg/>"}}
	exp := newTestExporter(drv, nil)

	svgs, err := exp.SVGs(context.Background(), &Document{HTML: "<html></html>"}, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svgs) != 1 || svgs[0] != "<svg/>" {
		t.Errorf("unexpected SVGs: %v", svgs)
	}
}

func TestExporter_Close(t *testing.T) {
	drv := &fakeDriver{}
	exp := newTestExporter(drv, nil)

	if err := exp.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !drv.closed {
		t.Error("expected driver to be closed")
	}
}

func TestNew_Defaults(t *testing.T) {
	exp := New()
	if exp.cfg.timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, exp.cfg.timeout)
	}
	if exp.driver == nil {
		t.Fatal("expected non-nil driver")
	}
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for non-positive timeout")
		}
	}()
	WithTimeout(0)
}
