package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev" // semantic version (e.g., "v1.2.3")
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version information displayed by --version.
// Typically called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootOptions holds persistent flags shared by all subcommands.
type rootOptions struct {
	configPath string
}

// Execute runs the bokeh-export CLI.
//
// The root command wires the subcommands (png, svg, doctor), configures
// logging from the --verbose flag, and attaches the logger to the context so
// every command retrieves it via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool
	ropts := &rootOptions{}

	root := &cobra.Command{
		Use:          "bokeh-export",
		Short:        "Export web-rendered plot layouts to PNG or SVG",
		Long:         `bokeh-export renders saved visualization layouts in a headless Chrome session and captures them as static PNG or SVG files.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("bokeh-export %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&ropts.configPath, "config", "", "config file (default: ./bokeh-export.yaml, ~/.config/bokeh-export/config.yaml)")

	root.AddCommand(newExportCmd(formatPNG, ropts))
	root.AddCommand(newExportCmd(formatSVG, ropts))
	root.AddCommand(newDoctorCmd())

	return root.ExecuteContext(ctx)
}
