package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/iostreamatlab/bokeh/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Container  bool   `json:"container"`
	CI         bool   `json:"ci"`
	NoSandbox  string `json:"rod_no_sandbox"`
	BrowserBin string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// newDoctorCmd builds the doctor subcommand.
func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the browser environment for exporting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := runDoctor()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printDoctorResult(cmd.OutOrStdout(), result)
			}

			if result.Status == "errors" {
				return fmt.Errorf("environment is not ready for exporting")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "machine-readable output")
	return cmd
}

// runDoctor performs all diagnostic checks.
func runDoctor() *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			Container:  hints.IsInContainer(),
			CI:         os.Getenv("CI") != "",
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	// Chrome discovery: explicit binary first, then well-known paths.
	if bin := result.Env.BrowserBin; bin != "" {
		if _, err := os.Stat(bin); err == nil {
			result.Chrome = chromeInfo{Found: true, Path: bin}
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("ROD_BROWSER_BIN points at %s but it does not exist", bin))
		}
	} else if path, found := launcher.LookPath(); found {
		result.Chrome = chromeInfo{Found: true, Path: path}
	} else {
		result.Warnings = append(result.Warnings, "no Chrome/Chromium found; rod will download a managed Chromium on first run")
	}

	// Sandbox settings in confined environments.
	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings, "running in a container/CI without ROD_NO_SANDBOX=1; Chrome may fail to start")
	}

	// Temp dir writability: every export writes an intermediate HTML file.
	tmp, err := os.CreateTemp("", "bokeh-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("temp directory is not writable: %v", err))
	} else {
		result.System.TempWritable = true
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	switch {
	case len(result.Errors) > 0:
		result.Status = "errors"
	case len(result.Warnings) > 0:
		result.Status = "warnings"
	}
	return result
}

// printDoctorResult renders the human-readable report.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintf(w, "Status: %s\n\n", r.Status)

	if r.Chrome.Found {
		fmt.Fprintf(w, "Chrome: %s\n", r.Chrome.Path)
	} else {
		fmt.Fprintln(w, "Chrome: not found (rod-managed download will be used)")
	}

	fmt.Fprintf(w, "OS: %s/%s", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprint(w, " (container)")
	}
	if r.Env.CI {
		fmt.Fprint(w, " (CI)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Temp writable: %v\n", r.System.TempWritable)

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warn)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "\nerror: %s\n", e)
	}
}
