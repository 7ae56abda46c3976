// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/iostreamatlab/bokeh/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 or browser.noSandbox for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN or --browser-bin to use a pre-installed Chrome")
	}

	return formatHints(hints)
}

// ForLibraryLoad returns hints for pages that never initialize BokehJS.
func ForLibraryLoad() string {
	return format("check that the page loads BokehJS (script tags reachable without a network?)")
}

// ForTimeout returns a hint about increasing the timeout for slow layouts.
func ForTimeout() string {
	return format("for large layouts, raise --timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hints := []string{"use --config /path/to/file.yaml"}
	if len(searchedPaths) > 0 {
		hints = append(hints, "searched: "+strings.Join(searchedPaths, ", "))
	}
	return formatHints(hints)
}

// format renders a single hint line.
func format(hint string) string {
	return "\n  hint: " + hint
}

// formatHints renders each hint on its own line.
func formatHints(hints []string) string {
	var sb strings.Builder
	for _, h := range hints {
		sb.WriteString(format(h))
	}
	return sb.String()
}
