package bokeh

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// viewportCSS makes the exported page fill the browser viewport exactly, so
// the screenshot is bounded by the layout rather than by scrollbars.
const viewportCSS = `html, body { margin: 0; width: 100%; height: 100%; overflow: hidden; }`

// renderLayoutHTML produces the page an export loads into the browser.
// Width/height overrides are applied to Sizable layouts for the duration of
// the render and restored afterwards; other layouts keep their own size.
func renderLayoutHTML(layout Layout, req Request, logger *log.Logger) (string, error) {
	if req.Width > 0 || req.Height > 0 {
		if s, ok := layout.(Sizable); ok {
			restore := s.Resize(req.Width, req.Height)
			defer restore()
		} else {
			logger.Warn("width/height requested for a layout that does not support resizing; the size values will be ignored")
		}
	}

	page, err := layout.LayoutHTML()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLayoutHTML, err)
	}

	return injectHeadStyle(page, viewportCSS), nil
}

// injectHeadStyle inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
func injectHeadStyle(htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	styleBlock := "<style>" + cssContent + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		// Find the closing > of <body...>
		closeIdx := strings.Index(htmlContent[idx:], ">")
		if closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// Document is a layout that is already a complete standalone HTML page, for
// example a previously saved document file. The page is expected to load
// BokehJS itself.
type Document struct {
	HTML string
}

// LayoutHTML returns the page as-is.
func (d *Document) LayoutHTML() (string, error) {
	if strings.TrimSpace(d.HTML) == "" {
		return "", fmt.Errorf("%w: empty document", ErrLayoutHTML)
	}
	return d.HTML, nil
}

// Default plot dimensions in pixels, used when a Plot does not set its own.
const (
	defaultPlotWidth  = 600
	defaultPlotHeight = 600
)

// Plot is a layout built from a serialized document. The page embeds the
// document JSON and asks BokehJS to render it into a root element.
type Plot struct {
	Title   string
	DocJSON string   // serialized document, embedded verbatim
	Width   int      // pixels; 0 uses the default
	Height  int      // pixels; 0 uses the default
	Scripts []string // script URLs, loaded in order (BokehJS first)
	Styles  []string // stylesheet URLs
}

// Resize overrides the plot dimensions. A zero value keeps the current
// dimension. The returned func restores the previous dimensions.
func (p *Plot) Resize(width, height int) (restore func()) {
	prevW, prevH := p.Width, p.Height
	if width > 0 {
		p.Width = width
	}
	if height > 0 {
		p.Height = height
	}
	return func() {
		p.Width, p.Height = prevW, prevH
	}
}

var plotPageTmpl = template.Must(template.New("plot").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{range .Styles}}<link rel="stylesheet" href="{{.}}">
{{end}}{{range .Scripts}}<script src="{{.}}"></script>
{{end}}</head>
<body>
<div id="bk-plot-root" style="width: {{.Width}}px; height: {{.Height}}px;"></div>
<script type="application/json" id="bk-doc-json">{{.DocJSON}}</script>
<script>
Bokeh.safely(function() {
  const item = JSON.parse(document.getElementById("bk-doc-json").textContent);
  Bokeh.embed.embed_item(item, "bk-plot-root");
});
</script>
</body>
</html>
`))

// LayoutHTML assembles the standalone page for the plot.
func (p *Plot) LayoutHTML() (string, error) {
	if strings.TrimSpace(p.DocJSON) == "" {
		return "", fmt.Errorf("%w: plot has no document JSON", ErrLayoutHTML)
	}

	width := p.Width
	if width <= 0 {
		width = defaultPlotWidth
	}
	height := p.Height
	if height <= 0 {
		height = defaultPlotHeight
	}

	data := struct {
		Title         string
		DocJSON       template.JS
		Width, Height int
		Scripts       []string
		Styles        []string
	}{
		Title:   p.Title,
		DocJSON: template.JS(p.DocJSON), // #nosec G203 -- document JSON is the payload, not user markup
		Width:   width,
		Height:  height,
		Scripts: p.Scripts,
		Styles:  p.Styles,
	}

	var sb strings.Builder
	if err := plotPageTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLayoutHTML, err)
	}
	return sb.String(), nil
}

// defaultFilename derives an output name from the running executable, e.g.
// /foo/myplot exporting PNG becomes ./myplot.png.
func defaultFilename(ext string) (string, error) {
	base := filepath.Base(os.Args[0])
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "bokeh_plot"
	}
	return filepath.Abs(base + "." + ext)
}

// numberedFilename inserts _i before the extension, so plot.svg becomes
// plot_1.svg for the second SVG of a layout.
func numberedFilename(filename string, i int) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%d%s", base, i, ext)
}
