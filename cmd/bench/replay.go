package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hyprpal/hyprgrid/internal/config"
	"github.com/hyprpal/hyprgrid/internal/engine"
	"github.com/hyprpal/hyprgrid/internal/ipc"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/metrics"
	"github.com/hyprpal/hyprgrid/internal/util"
)

type benchFixture struct {
	Name   string
	Events []ipc.Event
}

type benchLatencyStats struct {
	Min    float64 `json:"minMs"`
	Mean   float64 `json:"meanMs"`
	Median float64 `json:"medianMs"`
	P95    float64 `json:"p95Ms"`
	Max    float64 `json:"maxMs"`
}

type benchAllocationStats struct {
	Total         uint64  `json:"totalAllocations"`
	PerEvent      float64 `json:"allocationsPerEvent"`
	BytesTotal    uint64  `json:"bytesTotal"`
	BytesPerEvent float64 `json:"bytesPerEvent"`
}

type benchApplyStats struct {
	Total        int     `json:"total"`
	PerIteration float64 `json:"perIteration"`
	PerEvent     float64 `json:"perEvent"`
}

type benchSummary struct {
	Fixture            string               `json:"fixture"`
	Display            string               `json:"display"`
	Orientation        string               `json:"orientation"`
	Iterations         int                  `json:"iterations"`
	WarmupIterations   int                  `json:"warmupIterations"`
	EventsPerIteration int                  `json:"eventsPerIteration"`
	TotalEvents        int                  `json:"totalEvents"`
	Applies            benchApplyStats      `json:"applies"`
	Changes            metrics.Totals       `json:"changes"`
	Latency            benchLatencyStats    `json:"latency"`
	IterationDuration  benchLatencyStats    `json:"iterationDuration"`
	Allocations        benchAllocationStats `json:"allocations"`
	TotalDurationMs    float64              `json:"totalDurationMs"`
	EventsPerSecond    float64              `json:"eventsPerSecond"`
}

type benchReport struct {
	Summary     benchSummary     `json:"summary"`
	DurationsMs []float64        `json:"durationsMs"`
	Iterations  []benchIteration `json:"iterations,omitempty"`
}

type benchIteration struct {
	Index      int     `json:"index"`
	DurationMs float64 `json:"durationMs"`
	Applies    int     `json:"applies"`
	Contents   int     `json:"contents"`
}

type benchEventTrace struct {
	Iteration  int     `json:"iteration"`
	EventIndex int     `json:"eventIndex"`
	Kind       string  `json:"kind"`
	Payload    string  `json:"payload"`
	DurationMs float64 `json:"durationMs"`
	Applies    int     `json:"applies"`
}

// iterationResult is what one replay of the fixture produced.
type iterationResult struct {
	Duration time.Duration
	Applies  int
	Contents int
	Events   []time.Duration
	Traces   []benchEventTrace
	Changes  metrics.Totals
}

// replayIteration feeds every fixture event to a fresh engine and ticks after
// each one, the way the daemon would between ticker fires.
func replayIteration(fixture benchFixture, cfg *config.Config, logger *util.Logger, index int, trace bool) (iterationResult, error) {
	orientation, err := cfg.RootOrientation()
	if err != nil {
		return iterationResult{}, err
	}
	recorder := layout.NewRecorder()
	collector := metrics.NewCollector(true)
	eng := engine.New(recorder, logger, engine.Options{
		Frame:        cfg.Display.Rect(),
		Orientation:  orientation,
		HistoryLimit: cfg.HistoryLimit,
		Metrics:      collector,
	})

	result := iterationResult{Events: make([]time.Duration, 0, len(fixture.Events))}
	if trace {
		result.Traces = make([]benchEventTrace, 0, len(fixture.Events))
	}
	start := time.Now()
	for i, ev := range fixture.Events {
		before := recorder.Applied()
		eventStart := time.Now()
		if err := eng.HandleEvent(ev); err != nil {
			return result, fmt.Errorf("event %d (%s>>%s): %w", i+1, ev.Kind, ev.Payload, err)
		}
		if _, err := eng.Tick(); err != nil {
			return result, fmt.Errorf("tick after event %d: %w", i+1, err)
		}
		elapsed := time.Since(eventStart)
		result.Events = append(result.Events, elapsed)
		if trace {
			result.Traces = append(result.Traces, benchEventTrace{
				Iteration:  index,
				EventIndex: i + 1,
				Kind:       ev.Kind,
				Payload:    ev.Payload,
				DurationMs: toMillis(elapsed),
				Applies:    recorder.Applied() - before,
			})
		}
	}
	result.Duration = time.Since(start)
	result.Applies = recorder.Applied()
	result.Contents = eng.Len()
	result.Changes = collector.Snapshot().Changes
	return result, nil
}

func buildReport(fixture benchFixture, cfg *config.Config, warmup int, results []iterationResult, start, end memStats) benchReport {
	iterations := len(results)
	totalEvents := len(fixture.Events) * iterations

	var (
		durations          []time.Duration
		iterationDurations = make([]time.Duration, 0, iterations)
		iterationsData     = make([]benchIteration, 0, iterations)
		applies            int
		changes            metrics.Totals
	)
	for i, res := range results {
		durations = append(durations, res.Events...)
		iterationDurations = append(iterationDurations, res.Duration)
		applies += res.Applies
		changes.Added += res.Changes.Added
		changes.Modified += res.Changes.Modified
		changes.Removed += res.Changes.Removed
		iterationsData = append(iterationsData, benchIteration{
			Index:      i + 1,
			DurationMs: toMillis(res.Duration),
			Applies:    res.Applies,
			Contents:   res.Contents,
		})
	}

	latencyStats, totalEventDuration := buildLatencyStats(durations)
	iterationStats, _ := buildLatencyStats(iterationDurations)

	allocs := end.Mallocs - start.Mallocs
	bytesAllocated := end.TotalAlloc - start.TotalAlloc

	durationsMs := make([]float64, len(durations))
	for i, d := range durations {
		durationsMs[i] = toMillis(d)
	}

	summary := benchSummary{
		Fixture:            fixture.Name,
		Display:            cfg.Display.Rect().String(),
		Orientation:        cfg.Orientation,
		Iterations:         iterations,
		WarmupIterations:   warmup,
		EventsPerIteration: len(fixture.Events),
		TotalEvents:        totalEvents,
		Applies: benchApplyStats{
			Total:        applies,
			PerIteration: safeDivide(applies, iterations),
			PerEvent:     safeDivide(applies, totalEvents),
		},
		Changes:           changes,
		Latency:           latencyStats,
		IterationDuration: iterationStats,
		Allocations: benchAllocationStats{
			Total:         allocs,
			PerEvent:      perEvent(float64(allocs), totalEvents),
			BytesTotal:    bytesAllocated,
			BytesPerEvent: perEvent(float64(bytesAllocated), totalEvents),
		},
		TotalDurationMs: toMillis(totalEventDuration),
		EventsPerSecond: eventsPerSecond(totalEventDuration, totalEvents),
	}
	return benchReport{Summary: summary, DurationsMs: durationsMs, Iterations: iterationsData}
}

// memStats is the subset of runtime.MemStats the report uses.
type memStats struct {
	Mallocs    uint64
	TotalAlloc uint64
}

func buildLatencyStats(durations []time.Duration) (benchLatencyStats, time.Duration) {
	stats := benchLatencyStats{}
	if len(durations) == 0 {
		return stats, 0
	}
	total := time.Duration(0)
	for _, d := range durations {
		total += d
	}
	mean := total / time.Duration(len(durations))
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	stats.Min = toMillis(sorted[0])
	stats.Mean = toMillis(mean)
	stats.Median = toMillis(percentile(sorted, 0.50))
	stats.P95 = toMillis(percentile(sorted, 0.95))
	stats.Max = toMillis(sorted[len(sorted)-1])
	return stats, total
}

func safeDivide(total int, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func perEvent(total float64, events int) float64 {
	if events == 0 {
		return total
	}
	return total / float64(events)
}

func eventsPerSecond(total time.Duration, events int) float64 {
	if total <= 0 || events == 0 {
		return 0
	}
	return float64(events) / total.Seconds()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(p*float64(len(sorted)-1) + 0.5)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func loadFixture(path string) (benchFixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return benchFixture{}, err
	}
	defer f.Close()
	events, err := parseEventLog(f)
	if err != nil {
		return benchFixture{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return benchFixture{Name: name, Events: events}, nil
}

func parseEventLog(r io.Reader) ([]ipc.Event, error) {
	var events []ipc.Event
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		ev, ok := ipc.ParseLine(scanner.Text())
		if !ok {
			continue
		}
		if ev.Kind == "" {
			return nil, fmt.Errorf("line %d: missing event kind", line)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, errors.New("event log produced no events")
	}
	return events, nil
}

// defaultFixture builds a synthetic session: a handful of contents arrive,
// focus wanders, nodes get reordered and half the contents close again.
func defaultFixture() benchFixture {
	var b strings.Builder
	for id := 1; id <= 8; id++ {
		fmt.Fprintf(&b, "add>>%d,0x%x\n", id, 0xa0+id)
	}
	b.WriteString("focus>>3\nmove>>north\nmovefocus>>south\nmove>>south\nfocus>>8\nmove>>north\n")
	for id := 2; id <= 8; id += 2 {
		fmt.Fprintf(&b, "remove>>%d\n", id)
	}
	b.WriteString("focus>>1\nmove>>south\n")
	events, _ := parseEventLog(strings.NewReader(b.String()))
	return benchFixture{Name: "synthetic", Events: events}
}
