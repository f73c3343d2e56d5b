package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/hyprgrid/internal/layout"
)

const (
	defaultTickIntervalMs = 250
	defaultHistoryLimit   = 64
)

// Config is the top-level configuration document.
type Config struct {
	Display        Display   `yaml:"display"`
	Orientation    string    `yaml:"orientation"`
	TickIntervalMs int       `yaml:"tickIntervalMs"`
	DryRun         bool      `yaml:"dryRun"`
	HistoryLimit   int       `yaml:"historyLimit"`
	LogLevel       string    `yaml:"logLevel"`
	Telemetry      Telemetry `yaml:"telemetry"`
}

// UnmarshalYAML handles deprecated fields while decoding configuration files.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Display          Display   `yaml:"display"`
		Orientation      *string   `yaml:"orientation"`
		SplitOrientation *string   `yaml:"splitOrientation"`
		TickIntervalMs   int       `yaml:"tickIntervalMs"`
		DryRun           bool      `yaml:"dryRun"`
		HistoryLimit     int       `yaml:"historyLimit"`
		LogLevel         string    `yaml:"logLevel"`
		Telemetry        Telemetry `yaml:"telemetry"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Display = raw.Display
	c.TickIntervalMs = raw.TickIntervalMs
	c.DryRun = raw.DryRun
	c.HistoryLimit = raw.HistoryLimit
	c.LogLevel = raw.LogLevel
	c.Telemetry = raw.Telemetry

	switch {
	case raw.Orientation != nil:
		c.Orientation = *raw.Orientation
	case raw.SplitOrientation != nil:
		c.Orientation = *raw.SplitOrientation
	default:
		c.Orientation = ""
	}
	return nil
}

// Display is the rectangle the grid tiles.
type Display struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Rect converts the display into a layout rectangle.
func (d Display) Rect() layout.Rect {
	return layout.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}

// Telemetry toggles the in-process metrics collector.
type Telemetry struct {
	Enabled bool `yaml:"enabled"`
}

// RootOrientation parses the configured root split orientation.
func (c *Config) RootOrientation() (layout.Orientation, error) {
	return layout.ParseOrientation(c.Orientation)
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a configuration payload.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Orientation == "" {
		c.Orientation = "horizontal"
	}
	if c.TickIntervalMs == 0 {
		c.TickIntervalMs = defaultTickIntervalMs
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate performs basic sanity checks and returns the first problem found.
func (c *Config) Validate() error {
	if errs := c.Lint(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
