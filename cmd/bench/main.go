package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"text/tabwriter"

	"github.com/hyprpal/hyprgrid/internal/config"
	"github.com/hyprpal/hyprgrid/internal/util"
)

func main() {
	defaultConfig := filepath.Join("configs", "example.yaml")
	defaultFixturePath := filepath.Join("cmd", "bench", "testdata", "session.log")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	fixturePath := flag.String("fixture", defaultFixturePath, "path to an event log (kind>>payload per line)")
	iterations := flag.Int("iterations", 10, "number of times to replay the fixture")
	warmup := flag.Int("warmup", 0, "number of warm-up iterations to run before timing")
	cpuProfile := flag.String("cpu-profile", "", "write CPU profile to file")
	memProfile := flag.String("mem-profile", "", "write heap profile to file")
	logLevel := flag.String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	outputPath := flag.String("output", "-", "write JSON report to file ('-' for stdout)")
	humanSummary := flag.Bool("human", false, "print a tabular summary alongside the JSON output")
	eventTracePath := flag.String("event-trace", "", "write per-event timings to file (JSON array, '-' for stdout)")
	flag.Parse()

	if *iterations <= 0 {
		exitErr(errors.New("iterations must be positive"))
	}
	if *warmup < 0 {
		exitErr(errors.New("warmup must be zero or positive"))
	}

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))
	traceEnabled := strings.TrimSpace(*eventTracePath) != ""

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}

	fixture := defaultFixture()
	if *fixturePath != "" {
		loaded, loadErr := loadFixture(*fixturePath)
		switch {
		case loadErr == nil:
			fixture = loaded
		case errors.Is(loadErr, fs.ErrNotExist) && *fixturePath == defaultFixturePath:
			logger.Warnf("fixture %s not found, using built-in synthetic stream", *fixturePath)
		default:
			exitErr(fmt.Errorf("load fixture: %w", loadErr))
		}
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			exitErr(fmt.Errorf("create cpu profile: %w", err))
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			exitErr(fmt.Errorf("start cpu profile: %w", err))
		}
		defer pprof.StopCPUProfile()
	}

	for i := 0; i < *warmup; i++ {
		if _, err := replayIteration(fixture, cfg, logger, i+1, false); err != nil {
			exitErr(fmt.Errorf("warmup iteration %d: %w", i+1, err))
		}
	}

	start := readMemStats()
	results := make([]iterationResult, 0, *iterations)
	var traces []benchEventTrace
	for i := 0; i < *iterations; i++ {
		res, err := replayIteration(fixture, cfg, logger, i+1, traceEnabled)
		if err != nil {
			exitErr(fmt.Errorf("iteration %d: %w", i+1, err))
		}
		results = append(results, res)
		traces = append(traces, res.Traces...)
	}
	end := readMemStats()

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			exitErr(fmt.Errorf("create mem profile: %w", err))
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			exitErr(fmt.Errorf("write heap profile: %w", err))
		}
	}

	report := buildReport(fixture, cfg, *warmup, results, start, end)
	if err := writeJSONTo(report, *outputPath); err != nil {
		exitErr(fmt.Errorf("encode report: %w", err))
	}
	if traceEnabled {
		if err := writeJSONTo(traces, *eventTracePath); err != nil {
			exitErr(fmt.Errorf("encode event trace: %w", err))
		}
	}
	if *humanSummary {
		if err := printHumanSummary(report.Summary, os.Stderr); err != nil {
			exitErr(fmt.Errorf("print summary: %w", err))
		}
	}
}

func readMemStats() memStats {
	runtime.GC()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return memStats{Mallocs: ms.Mallocs, TotalAlloc: ms.TotalAlloc}
}

func writeJSONTo(v any, outputPath string) error {
	var w io.Writer
	switch strings.TrimSpace(outputPath) {
	case "", "-":
		w = os.Stdout
	default:
		dir := filepath.Dir(outputPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		out, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer out.Close()
		w = out
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHumanSummary(summary benchSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Fixture:\t%s\n", summary.Fixture)
	fmt.Fprintf(tw, "Display:\t%s (%s)\n", summary.Display, summary.Orientation)
	fmt.Fprintf(tw, "Iterations:\t%d (+%d warmup)\n", summary.Iterations, summary.WarmupIterations)
	fmt.Fprintf(tw, "Events:\t%d (%d / iteration)\n", summary.TotalEvents, summary.EventsPerIteration)
	fmt.Fprintf(tw, "Applies:\t%d (%.2f / iter, %.2f / event)\n", summary.Applies.Total, summary.Applies.PerIteration, summary.Applies.PerEvent)
	fmt.Fprintf(tw, "Changes:\t%d new | %d modified | %d removed\n", summary.Changes.Added, summary.Changes.Modified, summary.Changes.Removed)
	latency := summary.Latency
	fmt.Fprintf(tw, "Latency (ms):\tmin %.3f | mean %.3f | median %.3f | p95 %.3f | max %.3f\n", latency.Min, latency.Mean, latency.Median, latency.P95, latency.Max)
	iteration := summary.IterationDuration
	fmt.Fprintf(tw, "Iteration duration (ms):\tmin %.3f | mean %.3f | median %.3f | p95 %.3f | max %.3f\n", iteration.Min, iteration.Mean, iteration.Median, iteration.P95, iteration.Max)
	allocs := summary.Allocations
	fmt.Fprintf(tw, "Allocations:\t%d total (%.2f / event)\n", allocs.Total, allocs.PerEvent)
	fmt.Fprintf(tw, "Bytes allocated:\t%d (%.2f / event)\n", allocs.BytesTotal, allocs.BytesPerEvent)
	fmt.Fprintf(tw, "Events/sec:\t%.2f\n", summary.EventsPerSecond)
	return tw.Flush()
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
