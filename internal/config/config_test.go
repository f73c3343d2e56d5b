package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyprpal/hyprgrid/internal/layout"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
display:
  width: 1920
  height: 1080
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Config{
		Display:        Display{Width: 1920, Height: 1080},
		Orientation:    "horizontal",
		TickIntervalMs: defaultTickIntervalMs,
		HistoryLimit:   defaultHistoryLimit,
		LogLevel:       "info",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
	o, err := cfg.RootOrientation()
	if err != nil || o != layout.Horizontal {
		t.Fatalf("RootOrientation() = %v, %v", o, err)
	}
	if got := cfg.Display.Rect(); got != (layout.Rect{Width: 1920, Height: 1080}) {
		t.Fatalf("unexpected display rect %+v", got)
	}
}

func TestLegacySplitOrientation(t *testing.T) {
	cfg, err := Parse([]byte(`
display: {width: 800, height: 600}
splitOrientation: vertical
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orientation != "vertical" {
		t.Fatalf("expected legacy key to populate orientation, got %q", cfg.Orientation)
	}
}

func TestOrientationWinsOverLegacyKey(t *testing.T) {
	cfg, err := Parse([]byte(`
display: {width: 800, height: 600}
orientation: horizontal
splitOrientation: vertical
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orientation != "horizontal" {
		t.Fatalf("expected orientation to win, got %q", cfg.Orientation)
	}
}

func TestLintReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Display:        Display{Width: 0, Height: -5},
		Orientation:    "diagonal",
		TickIntervalMs: -1,
		HistoryLimit:   -2,
		LogLevel:       "loud",
	}
	errs := cfg.Lint()
	var paths []string
	for _, e := range errs {
		paths = append(paths, e.Path)
	}
	want := []string{"display.width", "display.height", "orientation", "tickIntervalMs", "historyLimit", "logLevel"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("unexpected lint paths (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err == nil || !strings.HasPrefix(err.Error(), "display.width") {
		t.Fatalf("expected Validate to return the first lint error, got %v", err)
	}
}

func TestLoadRejectsInvalidDisplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("display: {width: 0, height: 10}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLintFileReportsDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("display: [not, a, mapping\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	errs, err := LintFile(path)
	if err != nil {
		t.Fatalf("unexpected I/O error: %v", err)
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "decode config") {
		t.Fatalf("expected a single decode lint error, got %v", errs)
	}
	if _, err := LintFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
