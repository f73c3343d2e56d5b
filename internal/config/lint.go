package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/hyprgrid/internal/layout"
)

// LintError describes one configuration problem.
type LintError struct {
	Path    string
	Message string
}

func (e LintError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var knownLogLevels = map[string]struct{}{
	"trace": {},
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Lint returns every problem in the configuration.
func (c *Config) Lint() []LintError {
	var errs []LintError
	if c.Display.Width <= 0 {
		errs = append(errs, LintError{Path: "display.width", Message: fmt.Sprintf("must be positive, got %d", c.Display.Width)})
	}
	if c.Display.Height <= 0 {
		errs = append(errs, LintError{Path: "display.height", Message: fmt.Sprintf("must be positive, got %d", c.Display.Height)})
	}
	if _, err := layout.ParseOrientation(c.Orientation); err != nil {
		errs = append(errs, LintError{Path: "orientation", Message: "must be horizontal or vertical"})
	}
	if c.TickIntervalMs < 0 {
		errs = append(errs, LintError{Path: "tickIntervalMs", Message: "cannot be negative"})
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, LintError{Path: "historyLimit", Message: "cannot be negative"})
	}
	if c.LogLevel != "" {
		if _, ok := knownLogLevels[strings.ToLower(c.LogLevel)]; !ok {
			errs = append(errs, LintError{Path: "logLevel", Message: fmt.Sprintf("unknown level %q", c.LogLevel)})
		}
	}
	return errs
}

// LintFile decodes the file at path and lints it. Decode failures are
// returned as a single lint error; only I/O failures return err.
func LintFile(path string) ([]LintError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return []LintError{{Message: fmt.Sprintf("decode config: %v", err)}}, nil
	}
	cfg.applyDefaults()
	return cfg.Lint(), nil
}
