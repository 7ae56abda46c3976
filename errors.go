package bokeh

import "errors"

// Sentinel errors for export operations.
var (
	ErrNilLayout   = errors.New("layout cannot be nil")
	ErrLayoutHTML  = errors.New("layout HTML rendering failed")
	ErrEmptyImage  = errors.New("unable to save an empty image")
	ErrWriteOutput = errors.New("failed to write output file")

	// Request validation errors.
	ErrInvalidSize = errors.New("invalid requested size")

	// Browser session errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrLibraryLoad    = errors.New("BokehJS was not loaded in time")
	ErrScreenshot     = errors.New("screenshot capture failed")
	ErrSVGExtract     = errors.New("SVG extraction failed")
)
