// Package config loads and validates the CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iostreamatlab/bokeh/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidValue   = errors.New("invalid config value")
)

// Validation bounds.
const (
	MaxDimension = 10000            // pixels; larger layouts exhaust Chrome
	MaxWorkers   = 64               // beyond the pool cap, but still sane
	MaxTimeout   = 10 * time.Minute // a render slower than this is stuck
)

// DefaultFileName is the config file searched for in the working directory.
const DefaultFileName = "bokeh-export.yaml"

// Config holds all configuration for the export CLI.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Export  ExportConfig  `yaml:"export"`
	Browser BrowserConfig `yaml:"browser"`
	Workers int           `yaml:"workers"` // 0 = auto-size from CPU count
}

// OutputConfig defines where exported files are written.
type OutputConfig struct {
	Dir string `yaml:"dir"` // output directory (empty = alongside input)
}

// ExportConfig defines default render parameters.
type ExportConfig struct {
	Width   int    `yaml:"width"`   // pixels, 0 = layout's own width
	Height  int    `yaml:"height"`  // pixels, 0 = layout's own height
	Timeout string `yaml:"timeout"` // Go duration string, e.g. "30s"
}

// BrowserConfig defines how the headless browser is launched.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // Chrome/Chromium binary (empty = rod-managed)
	NoSandbox bool   `yaml:"noSandbox"` // disable the Chrome sandbox (containers)
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault searches the default locations and loads the first config
// found. Returns a zero config when none exists.
func LoadDefault() (*Config, error) {
	for _, path := range searchPaths() {
		cfg, err := Load(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
	}
	return &Config{}, nil
}

// searchPaths returns candidate config locations in priority order.
func searchPaths() []string {
	paths := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "bokeh-export", "config.yaml"))
	}
	return paths
}

// Validate checks bounds on all configured values.
func (c *Config) Validate() error {
	if c.Export.Width < 0 || c.Export.Width > MaxDimension {
		return fmt.Errorf("%w: export.width %d (must be 0..%d)", ErrInvalidValue, c.Export.Width, MaxDimension)
	}
	if c.Export.Height < 0 || c.Export.Height > MaxDimension {
		return fmt.Errorf("%w: export.height %d (must be 0..%d)", ErrInvalidValue, c.Export.Height, MaxDimension)
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers %d (must be 0..%d)", ErrInvalidValue, c.Workers, MaxWorkers)
	}
	if _, err := c.parseTimeout(); err != nil {
		return err
	}
	return nil
}

// Timeout returns the configured timeout, or fallback when unset.
func (c *Config) Timeout(fallback time.Duration) time.Duration {
	d, err := c.parseTimeout()
	if err != nil || d == 0 {
		return fallback
	}
	return d
}

func (c *Config) parseTimeout() (time.Duration, error) {
	if c.Export.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Export.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: export.timeout %q: %v", ErrInvalidValue, c.Export.Timeout, err)
	}
	if d <= 0 || d > MaxTimeout {
		return 0, fmt.Errorf("%w: export.timeout %s (must be positive and at most %s)", ErrInvalidValue, d, MaxTimeout)
	}
	return d, nil
}
